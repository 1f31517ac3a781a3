package contract

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github/chapool/contract-gateway/internal/api"
)

func newSendRaw() *cobra.Command {
	return &cobra.Command{
		Use:     "send-raw <private_key> <raw_transaction>",
		Aliases: []string{"send_raw_transaction"},
		Short:   "Signs and relays a caller shaped transaction",
		Long: `Signs and relays a transaction described by raw_transaction.

raw_transaction is either a JSON transaction object or hex encoded
transaction bytes. A missing nonce is assigned by the gateway.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server) error {
				return runSendRaw(ctx, s, cmd.OutOrStdout(), args[0], args[1])
			})
		},
	}
}

func runSendRaw(ctx context.Context, s *api.Server, w io.Writer, privateKey string, rawTransaction string) error {
	outcome, err := s.Facade.SendRawTransaction(ctx, privateKey, rawTransaction)

	return printOutcome(w, outcome, outcome, err)
}
