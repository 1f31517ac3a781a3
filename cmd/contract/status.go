package contract

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/types"
)

func newStatus() *cobra.Command {
	return &cobra.Command{
		Use:   "status <tx_hash>",
		Short: "Reports the outcome of a transaction",
		Long: `Reports the outcome of a transaction by hash.

Journaled transactions that are still unsettled are checked against the
provider and settled when a receipt exists.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server) error {
				return runStatus(ctx, s, cmd.OutOrStdout(), args[0])
			})
		},
	}
}

func runStatus(ctx context.Context, s *api.Server, w io.Writer, txHash string) error {
	hash, err := types.ParseHash(txHash)
	if err != nil {
		return err
	}

	outcome, err := s.Gateway.Lookup(ctx, hash)
	if err != nil {
		return err
	}

	return printJSON(w, outcome)
}
