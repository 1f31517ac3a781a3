package contract

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/contract"
	"github/chapool/contract-gateway/internal/types"
)

func newEvents() *cobra.Command {
	var fromBlock, toBlock string

	cmd := &cobra.Command{
		Use:   "events <contract_address> <event_name>",
		Short: "Lists decoded contract events in a block range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server) error {
				return runEvents(ctx, s, cmd.OutOrStdout(), args[0], args[1], fromBlock, toBlock)
			})
		},
	}

	cmd.Flags().StringVar(&fromBlock, "from_block", "0", "First block of the range.")
	cmd.Flags().StringVar(&toBlock, "to_block", "latest", "Last block of the range.")

	return cmd
}

func runEvents(ctx context.Context, s *api.Server, w io.Writer, contractAddress string, eventName string, fromBlock string, toBlock string) error {
	address, err := types.ParseAddress(contractAddress)
	if err != nil {
		return err
	}

	from, err := contract.ParseBlockTag(fromBlock, contract.Block(0))
	if err != nil {
		return err
	}
	to, err := contract.ParseBlockTag(toBlock, contract.Latest)
	if err != nil {
		return err
	}

	events, err := s.Facade.GetEvents(ctx, s.Facade.At(address), eventName, from, to)
	if err != nil {
		return err
	}

	return printJSON(w, &types.EventsResponse{Events: events})
}
