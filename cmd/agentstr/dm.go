package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehallmark/agentstr/pkg/nostr"
)

func newDMCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "dm <recipient> <message>",
		Short: "Send an encrypted direct message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			recipient, message := args[0], args[1]
			ctx := cmd.Context()

			if wait <= 0 {
				if err := client.SendDirectMessage(ctx, recipient, message, ""); err != nil {
					return err
				}
				fmt.Println("sent")
				return nil
			}

			reply, err := client.SendDirectMessageAndWait(ctx, recipient, message, wait, "")
			if errors.Is(err, nostr.ErrNoResponse) {
				return fmt.Errorf("no reply within %s", wait)
			}
			if err != nil {
				return err
			}
			fmt.Println(reply.Content)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "wait this long for a reply (0 sends without waiting)")
	return cmd
}
