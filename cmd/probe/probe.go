package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/contract-gateway/internal/config"
	"github/chapool/contract-gateway/internal/util/command"
)

const (
	verboseFlag string = "verbose"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("probe",
		newLiveness(),
		newReadiness(),
	)
}

// probe asks a running server for one of its management endpoints. Any
// status but 200 is a failed probe.
func probe(ctx context.Context, cfg config.Server, path string, timeout time.Duration, verbose bool) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := strings.TrimRight(cfg.Management.ProbeListenAddress, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to build probe request for %s", url)
	}

	client := &http.Client{Timeout: cfg.Management.ProbeRequestTimeout}

	res, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "probe %s failed", url)
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))

	if verbose {
		log.Info().Str("url", url).Int("status", res.StatusCode).Str("body", strings.TrimSpace(string(body))).Msg("Probe answered")
	}

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("probe %s returned %d: %s", url, res.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}
