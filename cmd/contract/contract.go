package contract

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/contract-gateway/internal/api"
	"github/chapool/contract-gateway/internal/config"
	"github/chapool/contract-gateway/internal/gateway"
	"github/chapool/contract-gateway/internal/types"
	"github/chapool/contract-gateway/internal/util/command"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("contract",
		newDeploy(),
		newRead(),
		newWrite(),
		newEvents(),
		newSendRaw(),
		newStatus(),
	)
}

// run executes f against a freshly wired server built from the env config.
func run(cmd *cobra.Command, f func(ctx context.Context, s *api.Server) error) error {
	cfg := config.DefaultServiceConfigFromEnv()

	return command.WithServer(cmd.Context(), cfg, f)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode output")
	}

	return nil
}

// printOutcome prints the outcome even when the lifecycle failed after the
// transaction was sent, so that the hash is never lost.
func printOutcome(w io.Writer, v any, outcome *gateway.Outcome, err error) error {
	if err != nil {
		if outcome != nil {
			_ = printJSON(w, &types.OutcomeErrorResponse{Outcome: outcome, Error: err.Error()})
		}

		return err
	}

	return printJSON(w, v)
}
