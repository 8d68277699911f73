package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/teemow/apkship/internal/logging"
)

func newUploadCmd() *cobra.Command {
	var artifact string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload an existing APK without building",
		Long: `Upload the release APK that is already on disk, for example after a build
that was run by hand. The file replaces any earlier upload of the same name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.close()

			path := a.cfg.ArtifactPath
			if artifact != "" {
				path = artifact
			}
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("artifact not found: %w", err)
			}
			a.logger.Info("uploading artifact", logging.Path(path), "size", humanize.Bytes(uint64(info.Size())))

			_, err = a.publisher(cmd.OutOrStdout()).Publish(cmd.Context(), path)
			return err
		},
	}

	cmd.Flags().StringVar(&artifact, "artifact", "", "path of the file to upload (default: the configured artifact path)")
	return cmd
}
