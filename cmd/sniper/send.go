package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solana-pool-sniper/internal/chain"
	"solana-pool-sniper/internal/config"
	"solana-pool-sniper/internal/executor"
	"solana-pool-sniper/internal/health"
)

func runSend(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSend(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tx, err := loadTransaction(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	status := health.NewStatus()
	opts := []executor.Option{
		executor.WithSimulation(cfg.Simulate),
		executor.WithPollInterval(cfg.PollInterval),
		executor.WithLogger(logger),
		executor.WithHealth(status),
	}

	primary := newBackend(cfg.Client, cfg.RPCURL, logger)
	executors := []executor.Executor{executor.NewDefaultExecutor("primary", primary, opts...)}
	if cfg.BackupRPCURL != "" {
		backup := newBackend(cfg.Client, cfg.BackupRPCURL, logger)
		executors = append(executors, executor.NewDefaultExecutor("backup", backup, opts...))
	}
	exec, err := executor.Chain(executors, executor.WithLogger(logger))
	if err != nil {
		return err
	}

	blockhash, err := primary.LatestBlockhash(ctx)
	if err != nil {
		return fmt.Errorf("latest blockhash: %w", err)
	}
	if !blockhash.Blockhash.Equals(tx.Message.RecentBlockhash) {
		// The expiry height is only known for the latest blockhash; an older one expires sooner.
		logger.Warn("transaction blockhash is not the latest, expiry height is approximate",
			zap.String("tx_blockhash", tx.Message.RecentBlockhash.String()),
			zap.String("latest_blockhash", blockhash.Blockhash.String()))
	}

	logger.Info("send start",
		zap.String("executor", exec.Name()),
		zap.String("client", cfg.Client),
		zap.String("signer", cfg.Signer.String()),
		zap.Uint64("last_valid_block_height", blockhash.LastValidBlockHeight))

	res := exec.ExecuteAndConfirm(ctx, tx, cfg.Signer, blockhash)

	fmt.Fprintf(cmd.OutOrStdout(), "confirmed=%t signature=%s\n", res.Confirmed, res.Signature)
	if !res.Confirmed {
		return res.Err
	}
	return nil
}

func newBackend(client, endpoint string, logger *zap.Logger) executor.Backend {
	if client == config.ClientSolanaGo {
		return executor.NewRPCBackend(endpoint)
	}
	return executor.NewHTTPBackend(chain.NewHTTPClient(endpoint,
		chain.WithLatencyObserver(func(method string, elapsed time.Duration) {
			logger.Debug("rpc call",
				zap.String("endpoint", endpoint),
				zap.String("method", method),
				zap.Duration("elapsed", elapsed))
		}),
	))
}

// loadTransaction decodes the base64 signed transaction from --tx or --tx-file.
func loadTransaction(cfg config.SendConfig) (*solana.Transaction, error) {
	encoded := cfg.Tx
	if cfg.TxFile != "" {
		data, err := os.ReadFile(cfg.TxFile)
		if err != nil {
			return nil, fmt.Errorf("read tx file: %w", err)
		}
		encoded = string(data)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode base64 transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return tx, nil
}
