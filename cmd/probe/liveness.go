package probe

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/contract-gateway/internal/config"
	"github/chapool/contract-gateway/internal/util/command"
)

func newLiveness() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "liveness",
		Short: "Runs liveness probes",
		Long: `Asks the running server whether it is alive.

Exits non-zero when /-/healthy does not answer with 200 within the liveness
timeout. Requires configuration through ENV.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg.Logger)

			if err := probe(cmd.Context(), cfg, "/-/healthy", cfg.Management.LivenessTimeout, verbose); err != nil {
				log.Error().Err(err).Msg("Liveness probe failed")
				return err
			}

			if verbose {
				log.Info().Msg("Liveness probe succeeded")
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, verboseFlag, "v", false, "Show verbose output.")

	return cmd
}
