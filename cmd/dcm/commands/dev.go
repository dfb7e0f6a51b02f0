package commands

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dcmcore/dcm/internal/config"
	"github.com/dcmcore/dcm/internal/orchestrator"
)

func newDevCommand() *cobra.Command {
	var stateDB string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Run the reconciliation core in development mode",
		Long: `Load the project's models, reconcile the OLAP store, BUS broker, ingestion
routes, sync jobs, and worker processes against them, then watch the model
directory and re-reconcile on every change.

Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			root := filepath.Dir(configPath)
			projectRoot := filepath.Join(root, cfg.ModelsDir)

			log.Info().Str("project", cfg.Name).Str("models_dir", projectRoot).Msg("<DCM> starting development mode")

			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				srv := &http.Server{Addr: metricsAddr, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						log.Error().Err(err).Msg("<DCM> metrics server stopped")
					}
				}()
				go func() {
					<-cmd.Context().Done()
					srv.Close()
				}()
			}

			dev, err := orchestrator.NewDev(cmd.Context(), log.Logger, cfg, projectRoot, stateDB)
			if err != nil {
				return fmt.Errorf("assemble orchestrator: %w", err)
			}

			return dev.Run(cmd.Context(), projectRoot)
		},
	}

	cmd.Flags().StringVar(&stateDB, "state-db", "dcm.state.db", "path to the dev-mode state/OLAP database")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")

	return cmd
}
