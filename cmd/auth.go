package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Drive",
		Long: `Make sure apkship is authorized to use Google Drive, running the browser
consent flow if no authorization is stored yet.

Use --reset to discard the stored authorization first, for example after
revoking access or to switch to another Google account.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.close()

			auth := a.authenticator()
			if reset {
				if err := auth.Reset(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Stored authorization removed.")
			}

			if _, err := auth.Authorize(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authorized. Credentials are stored in %s\n", a.cfg.RecordPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "remove the stored authorization and authorize again")
	return cmd
}
