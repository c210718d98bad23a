package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaa/playlist-mirror/internal/exitcode"
)

func Execute(build BuildInfo, streams IOStreams) int {
	if wd, err := os.Getwd(); err == nil {
		if envErr := loadDotEnvFiles(wd, os.Environ(), os.Setenv); envErr != nil {
			fmt.Fprintln(streams.ErrOut, "WARN:", envErr)
		}
	}

	app := &AppContext{Build: build, IO: streams}
	root := newRootCommand(app)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(streams.ErrOut, "ERROR:", err)
		return mapExitCode(err)
	}
	return exitcode.Success
}

func newRootCommand(app *AppContext) *cobra.Command {
	showVersion := false

	root := &cobra.Command{
		Use:   "plmr",
		Short: "Mirror Spotify playlists to local tagged audio files",
		Long:  "plmr incrementally syncs a Spotify playlist into a local directory of tagged audio files with optional lyrics, resolving each track on YouTube Music.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion(app)
				return nil
			}
			return cmd.Help()
		},
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}

	defaultConfigPath := os.Getenv("PLMR_CONFIG")
	root.PersistentFlags().StringVarP(&app.Opts.ConfigPath, "config", "c", defaultConfigPath, "Path to config file")
	root.PersistentFlags().BoolVar(&app.Opts.JSON, "json", false, "Emit newline-delimited JSON events")
	root.PersistentFlags().BoolVarP(&app.Opts.Quiet, "quiet", "q", false, "Reduce output to errors and summary")
	root.PersistentFlags().BoolVarP(&app.Opts.Verbose, "verbose", "v", false, "Increase diagnostic output")
	root.PersistentFlags().BoolVar(&app.Opts.NoInput, "no-input", false, "Disable interactive prompts")
	root.PersistentFlags().BoolVarP(&app.Opts.DryRun, "dry-run", "n", false, "Plan without downloading or writing files")
	root.Flags().BoolVar(&showVersion, "version", false, "Print version info")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withExitCode(exitcode.InvalidUsage, err)
	})

	root.AddCommand(newLoginCommand(app))
	root.AddCommand(newLogoutCommand(app))
	root.AddCommand(newStatusCommand(app))
	root.AddCommand(newSyncCommand(app))
	root.AddCommand(newDownloadCommand(app))
	root.AddCommand(newCheckCommand(app))
	root.AddCommand(newListCommand(app))
	root.AddCommand(newLyricsCommand(app))
	root.AddCommand(newConfigCommand(app))
	root.AddCommand(newDoctorCommand(app))
	root.AddCommand(newVersionCommand(app))

	return root
}

func printVersion(app *AppContext) {
	version := app.Build.Version
	if version == "" {
		version = "dev"
	}
	commit := app.Build.Commit
	if commit == "" {
		commit = "unknown"
	}
	date := app.Build.Date
	if date == "" {
		date = "unknown"
	}

	fmt.Fprintf(app.IO.Out, "plmr version %s\ncommit: %s\nbuild_date: %s\n", version, commit, date)
}
