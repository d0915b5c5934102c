package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitcoinecho/blockbuilder/pkg/bitcoin"
	"github.com/bitcoinecho/blockbuilder/pkg/blockio"
	"github.com/bitcoinecho/blockbuilder/pkg/mempool"
)

const (
	name    = "bitcoin-echo"
	version = "0.2.0-dev"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush on exit

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   name,
		Short: "Bitcoin Echo: single-block construction engine",
	}
	root.AddCommand(newVersionCmd())
	root.AddCommand(newMineCmd(logger))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("%s version %s\n", name, version)
			return nil
		},
	}
}

func newMineCmd(logger *zap.Logger) *cobra.Command {
	var (
		mempoolDir    string
		outPath       string
		height        uint32
		prevBlockHash string
		payoutScript  string
		blockTime     int64
		extraNonceHex string
		headerVersion uint32
	)

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Build and mine a block from a directory of candidate transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			candidates, err := mempool.LoadDir(mempoolDir)
			if err != nil {
				return fmt.Errorf("load mempool: %w", err)
			}
			logger.Info("loaded candidates", zap.Int("count", len(candidates)), zap.String("dir", mempoolDir))

			prevHash, err := bitcoin.NewHash256FromDisplayString(prevBlockHash)
			if err != nil {
				return fmt.Errorf("invalid prev block hash: %w", err)
			}

			payout, err := decodeHex(payoutScript)
			if err != nil {
				return fmt.Errorf("invalid payout script: %w", err)
			}

			extraNonce, err := decodeHex(extraNonceHex)
			if err != nil {
				return fmt.Errorf("invalid extra nonce: %w", err)
			}

			t := blockTime
			if t == 0 {
				t = time.Now().Unix()
			}

			opts := bitcoin.BuildOptions{
				Height:        height,
				PrevBlockHash: prevHash,
				PayoutScript:  payout,
				Time:          uint32(t),
				ExtraNonce:    extraNonce,
				HeaderVersion: headerVersion,
			}

			result, err := bitcoin.BuildBlock(cmd.Context(), candidates, opts)
			if err != nil {
				return fmt.Errorf("build block: %w", err)
			}
			logger.Info("built block",
				zap.Int("selected", len(result.Block.Transactions)),
				zap.Int("rejected", len(result.Rejections)),
				zap.Uint64("weight", result.Block.Weight()),
			)

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			return blockio.Write(out, result)
		},
	}

	cmd.Flags().StringVar(&mempoolDir, "mempool", "mempool", "directory of candidate transaction JSON records")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (defaults to stdout)")
	cmd.Flags().Uint32Var(&height, "height", 1, "block height, for the coinbase BIP-34 push")
	cmd.Flags().StringVar(&prevBlockHash, "prev-block", bitcoin.ZeroHash.DisplayString(), "previous block hash, display order")
	cmd.Flags().StringVar(&payoutScript, "payout-script", "", "hex-encoded scriptPubKey for the coinbase reward")
	cmd.Flags().Int64Var(&blockTime, "time", 0, "block header timestamp (unix seconds); defaults to now")
	cmd.Flags().StringVar(&extraNonceHex, "extra-nonce", "", "hex-encoded extra nonce bytes for the coinbase scriptSig")
	cmd.Flags().Uint32Var(&headerVersion, "header-version", 0x20000000, "block header version")

	return cmd
}

func decodeHex(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}
