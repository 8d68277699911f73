package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/apkship/internal/build"
)

// configEnv names the config file for commands whose flags are not parsed.
const configEnv = "APKSHIP_CONFIG"

// rootCmd represents the base command for the apkship application
var rootCmd = &cobra.Command{
	Use:   "apkship",
	Short: "Builds the Flutter release APK and shares it on Google Drive",
	Long: `apkship runs the Flutter release build and, as soon as the build reports
the APK, uploads it to a Google Drive folder and prints a shareable link.

An existing upload with the same name is replaced in place, so links that
were already shared keep pointing at the latest build.

The first run opens a browser for Google authorization; the resulting
refresh token is stored and reused by later runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// version will be set by main
var version = "dev"

// configPath is the --config flag shared by all commands except bundle.
var configPath string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application. A failed build
// exits with the build's own exit code.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "apkship version %s\n" .Version}}`)

	// Interrupts cancel the run; a running build gets a chance to stop cleanly.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		var exitErr *build.ExitError
		if !errors.As(err, &exitErr) {
			rootCmd.PrintErrln("Error:", err)
		}
	}
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *build.ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default: $XDG_CONFIG_HOME/apkship/config.yaml; for bundle use $"+configEnv+")")

	rootCmd.AddCommand(newBundleCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newVersionCmd())
}
