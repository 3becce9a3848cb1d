package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thanh-ngan915/longchat-go/longchat"
	"github.com/Thanh-ngan915/longchat-go/longchat/credstore"
)

// app bundles the pieces every subcommand needs: a configured client, the
// credential store and a logger.
type app struct {
	cfg    longchat.Config
	client *longchat.Client
	store  credstore.Store
	auth   *longchat.Authenticator
	log    *zap.Logger
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := longchat.LoadConfig()
	if err != nil {
		return nil, err
	}
	if url, _ := cmd.Flags().GetString("url"); url != "" {
		cfg.URL = url
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	log, err := buildLogger(verbose)
	if err != nil {
		return nil, err
	}

	dataDir, _ := cmd.Flags().GetString("data-dir")
	store := credstore.NewFileStore(dataDir)

	client := longchat.NewClient(cfg)
	client.SetLogger(longchat.NewZapLogger(log))

	auth := longchat.NewAuthenticator(client, store)
	auth.SetLogger(longchat.NewZapLogger(log))
	auth.Attach(client.Dispatcher())

	return &app{cfg: cfg, client: client, store: store, auth: auth, log: log}, nil
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if !verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return zcfg.Build()
}

// signalContext returns a context cancelled by Ctrl-C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// connect dials the server and waits for the authentication reply before
// returning, so subcommands can assume a logged-in session.
func (a *app) connect(ctx context.Context, resume bool) error {
	authed := make(chan error, 1)
	a.auth.OnAuthenticated(func(longchat.Event) { authed <- nil })
	a.auth.OnAuthFailed(func(ev longchat.Event) {
		authed <- longchat.ProtocolError(ev)
	})

	if err := a.client.Connect(ctx); err != nil {
		if longchat.IsConnectionError(err) {
			return fmt.Errorf("cannot reach %s: %w", a.cfg.URL, err)
		}
		return err
	}
	if !resume {
		return nil
	}
	if err := a.auth.Resume(); err != nil {
		return fmt.Errorf("resume session (run `longchat login` first): %w", err)
	}
	select {
	case err := <-authed:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *app) close() {
	_ = a.client.Disconnect()
	_ = a.log.Sync()
}
