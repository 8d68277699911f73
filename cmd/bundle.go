package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/apkship/internal/build"
	"github.com/teemow/apkship/internal/publish"
)

func newBundleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bundle [build arguments...]",
		Short: "Build the release APK and upload it to Google Drive",
		Long: `Run the release build and upload the APK as soon as the build reports it.

Every argument is passed unchanged to the build command, so flags such as
--flavor or --dart-define reach Flutter. For the same reason this command
takes no flags of its own; set ` + configEnv + ` to use a config file.

The upload runs while the build keeps going. A failed upload is reported
but does not change the exit status; a failed build exits with the build's
exit code.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundle(cmd.Context(), args, os.Getenv(configEnv))
		},
	}
}

func runBundle(ctx context.Context, args []string, path string) error {
	a, err := newApp(ctx, path)
	if err != nil {
		return err
	}
	defer a.close()

	pipeline := &publish.Pipeline{
		Runner:    a.runner(os.Stdout, os.Stderr),
		Publisher: a.publisher(os.Stdout),
		Logger:    a.logger,
	}

	code, err := pipeline.Run(ctx, args)
	if err != nil {
		return err
	}
	if code != 0 {
		return &build.ExitError{Code: code}
	}
	return nil
}
