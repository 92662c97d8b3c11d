package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-pool-sniper/internal/discovery"
)

const testWallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"

func listenFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("listen", pflag.ContinueOnError)
	RegisterListenFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func sendFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("send", pflag.ContinueOnError)
	RegisterSendFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadListen_Defaults(t *testing.T) {
	cfg, err := LoadListen("", listenFlags(t, "--ws-url", "wss://example.invalid"))
	require.NoError(t, err)

	assert.Equal(t, "confirmed", cfg.Commitment)
	assert.Equal(t, discovery.WSOLMint, cfg.QuoteMint)
	assert.True(t, cfg.TrackAmmV4)
	assert.False(t, cfg.TrackCpmm)
	assert.Equal(t, 10, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.BaseDelay)
	assert.Equal(t, 60*time.Second, cfg.MaxDelay)
	assert.Equal(t, ":9090", cfg.MetricsAddr)

	watch := cfg.Watch()
	assert.True(t, watch.AmmV4)
	assert.False(t, watch.WalletChanges)
	assert.Equal(t, cfg.QuoteMint, watch.QuoteMint)
}

func TestLoadListen_EnvAndFlagPrecedence(t *testing.T) {
	t.Setenv("SNIPER_WS_URL", "wss://env.invalid")
	t.Setenv("SNIPER_QUOTE_MINT", "usdc")
	t.Setenv("SNIPER_RECONNECT_MAX_ATTEMPTS", "3")
	t.Setenv("SNIPER_TRACK_DLMM", "true")

	cfg, err := LoadListen("", listenFlags(t, "--reconnect-max-attempts", "5"))
	require.NoError(t, err)

	assert.Equal(t, "wss://env.invalid", cfg.WSURL)
	assert.Equal(t, discovery.USDCMint, cfg.QuoteMint)
	assert.True(t, cfg.TrackDlmm)
	assert.Equal(t, 5, cfg.MaxAttempts, "flag wins over env")
}

func TestLoadListen_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sniper.yaml")
	content := `
ws-url: wss://file.invalid
wallet: ` + testWallet + `
auto-sell: true
track-cpmm: true
reconnect-base-delay: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadListen(path, listenFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "wss://file.invalid", cfg.WSURL)
	assert.Equal(t, testWallet, cfg.Wallet.String())
	assert.True(t, cfg.AutoSell)
	assert.True(t, cfg.TrackCpmm)
	assert.Equal(t, 2*time.Second, cfg.BaseDelay)
}

func TestLoadListen_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing ws url", nil, "ws-url is required"},
		{"auto sell without wallet", []string{"--ws-url", "wss://x", "--auto-sell"}, "wallet is required"},
		{"bad wallet", []string{"--ws-url", "wss://x", "--wallet", "not-a-key"}, "wallet"},
		{"bad quote", []string{"--ws-url", "wss://x", "--quote-mint", "nope"}, "quote mint"},
		{"bad commitment", []string{"--ws-url", "wss://x", "--commitment", "recent"}, "commitment"},
		{"nothing enabled", []string{"--ws-url", "wss://x", "--track-amm-v4=false"}, "no subscriptions"},
		{"delay order", []string{"--ws-url", "wss://x", "--reconnect-base-delay", "2m"}, "reconnect delays"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadListen("", listenFlags(t, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadSend(t *testing.T) {
	cfg, err := LoadSend("", sendFlags(t,
		"--rpc", "https://primary.invalid",
		"--backup-rpc", "https://backup.invalid",
		"--tx", "AQID",
		"--signer", testWallet,
	))
	require.NoError(t, err)

	assert.Equal(t, ClientHTTP, cfg.Client)
	assert.True(t, cfg.Simulate)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, testWallet, cfg.Signer.String())
	assert.Equal(t, "https://backup.invalid", cfg.BackupRPCURL)
}

func TestLoadSend_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing signer", []string{"--rpc", "https://x", "--tx", "AQID"}, "signer is required"},
		{"missing rpc", []string{"--tx", "AQID", "--signer", testWallet}, "rpc is required"},
		{"no tx", []string{"--rpc", "https://x", "--signer", testWallet}, "exactly one of tx or tx-file"},
		{"both tx", []string{"--rpc", "https://x", "--signer", testWallet, "--tx", "AQID", "--tx-file", "tx.b64"}, "exactly one of tx or tx-file"},
		{"unknown client", []string{"--rpc", "https://x", "--signer", testWallet, "--tx", "AQID", "--rpc-client", "grpc"}, "rpc-client"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSend("", sendFlags(t, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
