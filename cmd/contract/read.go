package contract

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/contract"
	"github/chapool/contract-gateway/internal/types"
	"github/chapool/contract-gateway/internal/util"
)

func newRead() *cobra.Command {
	var (
		function string
		rawArgs  string
	)

	cmd := &cobra.Command{
		Use:   "read <contract_address>",
		Short: "Calls a view function without sending a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server) error {
				return runRead(ctx, s, cmd.OutOrStdout(), args[0], function, rawArgs)
			})
		},
	}

	cmd.Flags().StringVar(&function, "function", contract.DefaultReadFunction, "Function to call.")
	cmd.Flags().StringVar(&rawArgs, "args", "", "Function arguments as a JSON array.")

	return cmd
}

func runRead(ctx context.Context, s *api.Server, w io.Writer, contractAddress string, function string, rawArgs string) error {
	address, err := types.ParseAddress(contractAddress)
	if err != nil {
		return err
	}

	args, err := util.ParseJSONArgs(rawArgs)
	if err != nil {
		return err
	}

	values, err := s.Facade.ReadCall(ctx, s.Facade.At(address), function, args)
	if err != nil {
		return err
	}

	return printJSON(w, types.NewReadResponse(values))
}
