package main

import (
	"embed"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// embeddedConfig embeds the content of the application's YAML configuration file.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// embeddedResources bundles the pipeline definitions under resources/pipelines.
//
//go:embed resources/pipelines/*.yaml
var embeddedResources embed.FS

// newRootCommand builds the filecopy command. It runs with no arguments;
// an optional positional argument names the pipeline definition to run.
func newRootCommand() *cobra.Command {
	var overrides Overrides

	cmd := &cobra.Command{
		Use:   "filecopy [pipeline-resource]",
		Short: "Prepare the input/output directories and run a file copy pipeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				overrides.Resource = args[0]
			}
			overrides.EnvFilePath = resolveEnvFilePath(overrides.EnvFilePath)

			opts, err := GetApplicationOptions(overrides, embeddedConfig, embeddedResources)
			if err != nil {
				return err
			}
			app := fx.New(opts...)
			if err := app.Err(); err != nil {
				return err
			}
			// Run exits the process with code 1 when startup fails.
			app.Run()
			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&overrides.Resource, "pipeline", "", "pipeline definition resource (default from filecopy.pipeline.resource)")
	cmd.Flags().StringVar(&overrides.EnvFilePath, "env-file", "", "path to the .env file (default $ENV_FILE_PATH, else ./.env if present)")
	cmd.Flags().BoolVar(&overrides.Once, "once", false, "poll the input directory once, then exit")
	return cmd
}

// resolveEnvFilePath returns the explicit path, else $ENV_FILE_PATH.
// An empty result lets the config loader try ./.env quietly.
func resolveEnvFilePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("ENV_FILE_PATH")
}

// main is the entry point of the application.
func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.Errorf("Application run failed: %v", err)
		os.Exit(1)
	}
	os.Exit(0)
}
