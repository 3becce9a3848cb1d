package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thanh-ngan915/longchat-go/longchat"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open an interactive chat session",
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

			rec, err := a.store.Load()
			if err != nil {
				return err
			}

			session := longchat.NewSession(a.client)
			session.SetLogger(longchat.NewZapLogger(a.log))
			session.Attach(a.client.Dispatcher())
			session.OnConversationsReplaced(func(peers []string) {
				fmt.Printf("-- conversations: %s\n", strings.Join(peers, ", "))
			})

			// The wildcard slot runs after the session's own handlers, so the
			// session state is already updated when we print.
			a.client.On(longchat.Wildcard, func(ev longchat.Event) {
				if ev.Key != longchat.EventSendChat || len(ev.Data) == 0 {
					return
				}
				var msg longchat.Message
				if err := ev.UnmarshalData(&msg); err != nil || msg.Text == "" {
					return
				}
				fmt.Printf("[%s] %s\n", msg.From, msg.Text)
			})

			if err := session.Refresh(rec.Name); err != nil {
				return err
			}

			fmt.Printf("Connected as %s. /help for commands.\n", rec.Name)
			return repl(ctx, session)
		},
	}
}

func repl(ctx context.Context, session *longchat.Session) error {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := handleLine(session, strings.TrimSpace(line)); err != nil {
				if err == errQuit {
					return nil
				}
				fmt.Printf("error: %s\n", err)
			}
		}
	}
}

var errQuit = fmt.Errorf("quit")

func handleLine(session *longchat.Session, line string) error {
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return session.SendMessage(line)
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "select":
		session.SelectPeer(arg)
	case "room":
		session.SelectRoom(arg)
	case "join":
		return session.JoinRoom(arg)
	case "create":
		return session.CreateRoom(arg)
	case "list":
		for _, c := range session.Conversations() {
			fmt.Printf("  %s\n", c)
		}
		for _, r := range session.Rooms() {
			fmt.Printf("  #%s\n", r.Name)
		}
	case "help":
		fmt.Println("/select <peer>  /room <room>  /join <room>  /create <room>  /list  /quit")
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command /%s", cmd)
	}
	return nil
}
