package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thanh-ngan915/longchat-go/longchat"
)

func presenceCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "presence [peer...]",
		Short: "Sweep peers for online status",
		Long: `Sweep the given peers (or, with no arguments, everyone on your
conversation list) for online status, one probe at a time.`,
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

			poller := longchat.NewPoller(a.client)
			poller.SetLogger(longchat.NewZapLogger(a.log))
			poller.Attach(a.client.Dispatcher())

			done := make(chan map[string]bool, 1)
			poller.OnComplete(func(status map[string]bool) { done <- status })

			if len(args) > 0 {
				poller.Start(args)
			} else {
				session := longchat.NewSession(a.client)
				session.Attach(a.client.Dispatcher())
				session.OnConversationsReplaced(func(peers []string) {
					poller.Start(peers)
				})

				rec, err := a.store.Load()
				if err != nil {
					return err
				}
				if err := session.Refresh(rec.Name); err != nil {
					return err
				}
			}

			select {
			case status := <-done:
				printStatus(status)
				return nil
			case <-time.After(timeout):
				poller.Stop()
				printStatus(poller.Snapshot())
				return fmt.Errorf("sweep timed out after %s", timeout)
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "give up after this long")
	return cmd
}

func printStatus(status map[string]bool) {
	peers := make([]string, 0, len(status))
	for peer := range status {
		peers = append(peers, peer)
	}
	sort.Strings(peers)
	for _, peer := range peers {
		mark := "offline"
		if status[peer] {
			mark = "online"
		}
		fmt.Printf("%-24s %s\n", peer, mark)
	}
}
