// Command sniper runs the pool listener and the transaction executor chain.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"solana-pool-sniper/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "sniper",
		Short:        "Solana new-pool listener and transaction executor",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	listenCmd := &cobra.Command{
		Use:   "listen",
		Short: "Subscribe to pool, market and wallet accounts and journal detections",
		RunE:  runListen,
	}
	config.RegisterListenFlags(listenCmd.Flags())
	root.AddCommand(listenCmd)

	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Simulate, submit and confirm a signed transaction through the executor chain",
		RunE:  runSend,
	}
	config.RegisterSendFlags(sendCmd.Flags())
	root.AddCommand(sendCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
