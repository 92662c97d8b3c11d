package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/pflag"
)

// RPC client implementations selectable for send.
const (
	ClientHTTP     = "http"
	ClientSolanaGo = "solana-go"
)

// SendConfig holds configuration for the send command.
type SendConfig struct {
	RPCURL       string
	BackupRPCURL string
	Client       string

	Tx     string // base64 signed transaction
	TxFile string
	Signer solana.PublicKey

	Simulate     bool
	PollInterval time.Duration
	Timeout      time.Duration
	LogLevel     string
}

var sendDefaults = map[string]interface{}{
	"rpc-client":    ClientHTTP,
	"simulate":      true,
	"poll-interval": 500 * time.Millisecond,
	"timeout":       90 * time.Second,
	"log-level":     "info",
}

// RegisterSendFlags adds the send command flags to fs.
func RegisterSendFlags(fs *pflag.FlagSet) {
	fs.String("rpc", "", "primary Solana RPC URL")
	fs.String("backup-rpc", "", "backup Solana RPC URL, tried when the primary fails")
	fs.String("rpc-client", ClientHTTP, "RPC client implementation (http, solana-go)")
	fs.String("tx", "", "base64 signed transaction")
	fs.String("tx-file", "", "file holding a base64 signed transaction")
	fs.String("signer", "", "public key of a required signer of the transaction")
	fs.Bool("simulate", true, "simulate before submitting")
	fs.Duration("poll-interval", 500*time.Millisecond, "signature status poll interval")
	fs.Duration("timeout", 90*time.Second, "overall execution timeout")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

// LoadSend merges config file, environment variables, and flags into SendConfig.
func LoadSend(cfgFile string, flags *pflag.FlagSet) (SendConfig, error) {
	v, err := newViper(cfgFile, flags, sendDefaults)
	if err != nil {
		return SendConfig{}, err
	}

	cfg := SendConfig{
		RPCURL:       v.GetString("rpc"),
		BackupRPCURL: v.GetString("backup-rpc"),
		Client:       v.GetString("rpc-client"),
		Tx:           v.GetString("tx"),
		TxFile:       v.GetString("tx-file"),
		Simulate:     v.GetBool("simulate"),
		PollInterval: v.GetDuration("poll-interval"),
		Timeout:      v.GetDuration("timeout"),
		LogLevel:     v.GetString("log-level"),
	}

	signer := v.GetString("signer")
	if signer == "" {
		return SendConfig{}, errors.New("signer is required")
	}
	if cfg.Signer, err = optionalKey("signer", signer); err != nil {
		return SendConfig{}, err
	}

	if err := cfg.Validate(); err != nil {
		return SendConfig{}, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c SendConfig) Validate() error {
	var errs []error
	if c.RPCURL == "" {
		errs = append(errs, errors.New("rpc is required"))
	}
	if c.Client != ClientHTTP && c.Client != ClientSolanaGo {
		errs = append(errs, fmt.Errorf("rpc-client %q must be %s or %s", c.Client, ClientHTTP, ClientSolanaGo))
	}
	if (c.Tx == "") == (c.TxFile == "") {
		errs = append(errs, errors.New("exactly one of tx or tx-file is required"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll-interval must be positive, got %s", c.PollInterval))
	}
	return errors.Join(errs...)
}
