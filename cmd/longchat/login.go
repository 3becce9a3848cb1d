package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thanh-ngan915/longchat-go/longchat"
)

func loginCmd() *cobra.Command {
	var register bool

	cmd := &cobra.Command{
		Use:   "login <user>",
		Short: "Log in and store credentials for later sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := args[0]
			pass, err := readPassword()
			if err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			if err := a.connect(ctx, false); err != nil {
				return err
			}

			authed := make(chan error, 1)
			a.auth.OnAuthenticated(func(longchat.Event) { authed <- nil })
			a.auth.OnAuthFailed(func(ev longchat.Event) {
				authed <- longchat.ProtocolError(ev)
			})

			if register {
				err = a.auth.Register(user, pass)
			} else {
				err = a.auth.Login(user, pass)
			}
			if err != nil {
				return err
			}

			select {
			case err := <-authed:
				if err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}

			fmt.Printf("Logged in as %s; credentials stored.\n", user)
			return nil
		},
	}

	cmd.Flags().BoolVar(&register, "register", false, "create the account before logging in")
	return cmd
}

func readPassword() (string, error) {
	fmt.Print("Password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	pass := strings.TrimRight(line, "\r\n")
	if pass == "" {
		return "", fmt.Errorf("empty password")
	}
	return pass, nil
}
