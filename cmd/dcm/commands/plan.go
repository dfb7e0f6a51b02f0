package commands

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dcmcore/dcm/internal/config"
	"github.com/dcmcore/dcm/internal/orchestrator"
)

func newPlanCommand() *cobra.Command {
	var stateDB string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the changes a reconciliation pass would apply",
		Long: `Load the project's models, diff them against the observed state, and
print the ordered Change list a "dcm dev" run would execute -- without
applying any of it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			root := filepath.Dir(configPath)
			projectRoot := filepath.Join(root, cfg.ModelsDir)

			dev, err := orchestrator.NewDev(cmd.Context(), log.Logger, cfg, projectRoot, stateDB)
			if err != nil {
				return fmt.Errorf("assemble orchestrator: %w", err)
			}
			defer dev.Close()

			changes, err := dev.Plan(cmd.Context(), projectRoot)
			if err != nil {
				return err
			}

			if len(changes) == 0 {
				fmt.Println("no changes")
				return nil
			}

			for _, c := range changes {
				name := ""
				if c.Node != nil {
					name = c.Node.ID.Name
				} else if c.Previous != nil {
					name = c.Previous.ID.Name
				}
				destructive := ""
				if c.Destructive {
					destructive = " (destructive)"
				}
				fmt.Printf("%s %s%s\n", c.Kind, name, destructive)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&stateDB, "state-db", "dcm.state.db", "path to the dev-mode state/OLAP database")

	return cmd
}
