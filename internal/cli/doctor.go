package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jaa/playlist-mirror/internal/config"
	"github.com/jaa/playlist-mirror/internal/doctor"
)

func newDoctorCommand(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check dependencies, auth, and filesystem readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(app)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			report := doctor.NewChecker(tokenCache()).Check(context.Background(), cfg)

			if app.Opts.JSON {
				return json.NewEncoder(app.IO.Out).Encode(report)
			}

			checks := append([]doctor.Check{}, report.Checks...)
			sort.SliceStable(checks, func(i, j int) bool {
				return checks[i].Name < checks[j].Name
			})
			for _, check := range checks {
				fmt.Fprintf(app.IO.Out, "[%s] %s: %s\n", check.Severity, check.Name, check.Message)
			}

			if report.HasErrors() {
				return fmt.Errorf("doctor found %d error(s)", report.ErrorCount())
			}
			return nil
		},
	}
}
