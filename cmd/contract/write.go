package contract

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/contract"
	"github/chapool/contract-gateway/internal/types"
)

type writeResult struct {
	TransactionHash string `json:"transaction_hash"`
}

func newWrite() *cobra.Command {
	var function string

	cmd := &cobra.Command{
		Use:   "write <contract_address> <private_key> [function_args...]",
		Short: "Sends a state changing function call and waits for its receipt",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server) error {
				return runWrite(ctx, s, cmd.OutOrStdout(), args[0], args[1], function, args[2:])
			})
		},
	}

	cmd.Flags().StringVar(&function, "function", contract.DefaultWriteFunction, "Function to send.")

	return cmd
}

func runWrite(ctx context.Context, s *api.Server, w io.Writer, contractAddress string, privateKey string, function string, args []string) error {
	address, err := types.ParseAddress(contractAddress)
	if err != nil {
		return err
	}

	outcome, err := s.Facade.WriteCall(ctx, s.Facade.At(address), privateKey, function, stringArgs(args))
	if err != nil {
		return printOutcome(w, nil, outcome, err)
	}

	return printJSON(w, &writeResult{TransactionHash: outcome.Hash.Hex()})
}
