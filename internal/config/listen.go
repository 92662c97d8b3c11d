package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/pflag"

	"solana-pool-sniper/internal/discovery"
)

// ListenConfig holds configuration for the listen command.
type ListenConfig struct {
	WSURL      string
	Commitment string

	QuoteMint solana.PublicKey
	Wallet    solana.PublicKey

	CacheMarkets bool
	TrackAmmV4   bool
	TrackCpmm    bool
	TrackDlmm    bool
	AutoSell     bool

	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	StatsInterval time.Duration

	MetricsAddr string
	PGDSN       string
	LogLevel    string
}

// Watch returns the subscription feature flags.
func (c ListenConfig) Watch() discovery.WatchConfig {
	return discovery.WatchConfig{
		QuoteMint:     c.QuoteMint,
		Wallet:        c.Wallet,
		Markets:       c.CacheMarkets,
		AmmV4:         c.TrackAmmV4,
		Cpmm:          c.TrackCpmm,
		Dlmm:          c.TrackDlmm,
		WalletChanges: c.AutoSell,
	}
}

var listenDefaults = map[string]interface{}{
	"commitment":             "confirmed",
	"quote-mint":             "wsol",
	"cache-markets":          false,
	"track-amm-v4":           true,
	"track-cpmm":             false,
	"track-dlmm":             false,
	"auto-sell":              false,
	"reconnect-max-attempts": 10,
	"reconnect-base-delay":   time.Second,
	"reconnect-max-delay":    60 * time.Second,
	"stats-interval":         time.Minute,
	"metrics-addr":           ":9090",
	"log-level":              "info",
}

// RegisterListenFlags adds the listen command flags to fs.
func RegisterListenFlags(fs *pflag.FlagSet) {
	fs.String("ws-url", "", "Solana WebSocket endpoint")
	fs.String("commitment", "confirmed", "subscription commitment (processed, confirmed, finalized)")
	fs.String("quote-mint", "wsol", "quote mint: wsol, usdc or a base58 address")
	fs.String("wallet", "", "wallet public key for auto-sell tracking")
	fs.Bool("cache-markets", false, "subscribe to OpenBook markets quoted in the quote mint")
	fs.Bool("track-amm-v4", true, "subscribe to Raydium AMM v4 pools")
	fs.Bool("track-cpmm", false, "subscribe to Raydium CPMM pools")
	fs.Bool("track-dlmm", false, "subscribe to Meteora DLMM pairs")
	fs.Bool("auto-sell", false, "subscribe to the wallet's token accounts")
	fs.Int("reconnect-max-attempts", 10, "reconnection attempts before giving up")
	fs.Duration("reconnect-base-delay", time.Second, "first reconnection delay")
	fs.Duration("reconnect-max-delay", 60*time.Second, "reconnection delay cap")
	fs.Duration("stats-interval", time.Minute, "subscription stats log interval, 0 disables")
	fs.String("metrics-addr", ":9090", "HTTP address for /metrics, /health and /detections, empty disables")
	fs.String("pg-dsn", "", "Postgres DSN for the detection journal, empty keeps it in memory")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

// LoadListen merges config file, environment variables, and flags into ListenConfig.
func LoadListen(cfgFile string, flags *pflag.FlagSet) (ListenConfig, error) {
	v, err := newViper(cfgFile, flags, listenDefaults)
	if err != nil {
		return ListenConfig{}, err
	}

	cfg := ListenConfig{
		WSURL:         v.GetString("ws-url"),
		Commitment:    v.GetString("commitment"),
		CacheMarkets:  v.GetBool("cache-markets"),
		TrackAmmV4:    v.GetBool("track-amm-v4"),
		TrackCpmm:     v.GetBool("track-cpmm"),
		TrackDlmm:     v.GetBool("track-dlmm"),
		AutoSell:      v.GetBool("auto-sell"),
		MaxAttempts:   v.GetInt("reconnect-max-attempts"),
		BaseDelay:     v.GetDuration("reconnect-base-delay"),
		MaxDelay:      v.GetDuration("reconnect-max-delay"),
		StatsInterval: v.GetDuration("stats-interval"),
		MetricsAddr:   v.GetString("metrics-addr"),
		PGDSN:         v.GetString("pg-dsn"),
		LogLevel:      v.GetString("log-level"),
	}

	if cfg.QuoteMint, err = discovery.ResolveQuoteMint(v.GetString("quote-mint")); err != nil {
		return ListenConfig{}, err
	}
	if cfg.Wallet, err = optionalKey("wallet", v.GetString("wallet")); err != nil {
		return ListenConfig{}, err
	}

	if err := cfg.Validate(); err != nil {
		return ListenConfig{}, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c ListenConfig) Validate() error {
	var errs []error
	if c.WSURL == "" {
		errs = append(errs, errors.New("ws-url is required"))
	}
	if !validCommitment(c.Commitment) {
		errs = append(errs, fmt.Errorf("commitment %q must be processed, confirmed or finalized", c.Commitment))
	}
	if !c.CacheMarkets && !c.TrackAmmV4 && !c.TrackCpmm && !c.TrackDlmm && !c.AutoSell {
		errs = append(errs, errors.New("no subscriptions enabled"))
	}
	if c.AutoSell && c.Wallet.IsZero() {
		errs = append(errs, errors.New("wallet is required when auto-sell is enabled"))
	}
	if c.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("reconnect-max-attempts must be positive, got %d", c.MaxAttempts))
	}
	if c.BaseDelay <= 0 || c.MaxDelay < c.BaseDelay {
		errs = append(errs, fmt.Errorf("reconnect delays must satisfy 0 < base (%s) <= max (%s)", c.BaseDelay, c.MaxDelay))
	}
	return errors.Join(errs...)
}
