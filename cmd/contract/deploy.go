package contract

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github/chapool/contract-gateway/internal/api"
)

type deployResult struct {
	ContractAddress string `json:"contract_address"`
	TransactionHash string `json:"transaction_hash"`
}

func newDeploy() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy <private_key> [constructor_args...]",
		Short: "Deploys the configured contract",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server) error {
				return runDeploy(ctx, s, cmd.OutOrStdout(), args[0], args[1:])
			})
		},
	}
}

func runDeploy(ctx context.Context, s *api.Server, w io.Writer, privateKey string, args []string) error {
	outcome, err := s.Facade.Deploy(ctx, privateKey, stringArgs(args))
	if err != nil {
		return printOutcome(w, nil, outcome, err)
	}

	res := &deployResult{TransactionHash: outcome.Hash.Hex()}
	if outcome.ContractAddress != nil {
		res.ContractAddress = outcome.ContractAddress.Hex()
	}

	return printJSON(w, res)
}

// stringArgs hands positional arguments to the argument coercion, which
// accepts strings for every ABI type.
func stringArgs(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}

	return out
}
