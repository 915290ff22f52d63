package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/ehallmark/agentstr/pkg/nostr"
)

func newChatCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "chat <agent-pubkey>",
		Short: "Interactive chat with a remote agent over encrypted DMs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			return runChat(cmd, client, args[0], timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "how long to wait for each reply")
	return cmd
}

func runChat(cmd *cobra.Command, client *nostr.Client, agent string, timeout time.Duration) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyFile := filepath.Join(os.TempDir(), ".agentstr_chat_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Printf("chatting with %s (ctrl-d to quit)\n", short(agent))
	ctx := cmd.Context()
	for {
		input, err := line.Prompt("> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		reply, err := client.SendDirectMessageAndWait(ctx, agent, input, timeout, "")
		switch {
		case errors.Is(err, nostr.ErrNoResponse):
			fmt.Printf("(no reply within %s)\n", timeout)
		case err != nil:
			return err
		default:
			fmt.Println(reply.Content)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
