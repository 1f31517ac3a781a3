package probe

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/contract-gateway/internal/config"
	"github/chapool/contract-gateway/internal/util/command"
)

func newReadiness() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Runs readiness probes",
		Long: `Asks the running server whether it can serve requests. The server
answers only after a round trip to the chain provider.

Exits non-zero when /-/ready does not answer with 200 within the readiness
timeout. Requires configuration through ENV.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg.Logger)

			if err := probe(cmd.Context(), cfg, "/-/ready", cfg.Management.ReadinessTimeout, verbose); err != nil {
				log.Error().Err(err).Msg("Readiness probe failed")
				return err
			}

			if verbose {
				log.Info().Msg("Readiness probe succeeded")
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, verboseFlag, "v", false, "Show verbose output.")

	return cmd
}
