package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "longchat",
		Short: "Terminal client for the LongChat server",
		Long: `longchat is a terminal client for the LongChat websocket server.

It keeps a reconnecting connection, logs in with stored credentials
(falling back to a re-login code when only that survives), and lets you
chat with people and rooms or sweep your conversation list for presence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("url", "", "server websocket URL (overrides LONGCHAT_URL)")
	rootCmd.PersistentFlags().String("data-dir", defaultDataDir(), "directory holding the credential record")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		loginCmd(),
		chatCmd(),
		presenceCmd(),
		logoutCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("longchat %s (%s)\n", version, commit)
		},
	}
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".longchat"
	}
	return filepath.Join(dir, "longchat")
}
