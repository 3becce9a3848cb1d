package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func logoutCmd() *cobra.Command {
	var forget bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the server session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			if err := a.connect(ctx, true); err != nil {
				return err
			}
			if err := a.auth.Logout(); err != nil {
				return err
			}
			if forget {
				if err := a.store.Clear(); err != nil {
					return err
				}
				fmt.Println("Logged out; stored credentials removed.")
				return nil
			}
			fmt.Println("Logged out.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&forget, "forget", false, "also remove the stored credential record")
	return cmd
}
