package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/teemow/apkship/internal/drive"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the files in the Drive upload folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.close()

			client, err := a.driveClient(cmd.Context())
			if err != nil {
				return err
			}

			folderID, found, err := client.FindFolder(cmd.Context(), a.cfg.FolderName)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(cmd.OutOrStdout(), "Folder %q does not exist yet.\n", a.cfg.FolderName)
				return nil
			}

			files, err := client.ListFolder(cmd.Context(), folderID)
			if err != nil {
				return err
			}
			return printFiles(cmd.OutOrStdout(), files)
		},
	}
}

func printFiles(w io.Writer, files []*drive.FileInfo) error {
	if len(files) == 0 {
		_, err := fmt.Fprintln(w, "No files.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\tLINK")
	for _, f := range files {
		size := "-"
		if !f.IsFolder() {
			size = humanize.Bytes(uint64(f.Size))
		}
		modified := "-"
		if !f.ModifiedTime.IsZero() {
			modified = humanize.Time(f.ModifiedTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name, size, modified, f.WebViewLink)
	}
	return tw.Flush()
}
