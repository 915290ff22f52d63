package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehallmark/agentstr/pkg/nostr"
)

func newListenCmd() *cobra.Command {
	var (
		tags    string
		authors []string
		dms     bool
		once    bool
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Stream notes or direct messages until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var listener *nostr.Listener
			if dms {
				listener, err = client.ListenForDirectMessages(ctx, func(ev *nostr.Event, content string) {
					fmt.Printf("[%s] dm from %s: %s\n", formatTime(ev.CreatedAt), short(ev.PubKey), content)
				}, nostr.DMOptions{CloseAfterFirst: once})
			} else {
				listener, err = client.ListenForNotes(ctx, func(ev *nostr.Event) {
					fmt.Printf("[%s] note from %s: %s\n", formatTime(ev.CreatedAt), short(ev.PubKey), ev.Content)
				}, nostr.NoteOptions{
					Tags:            splitTags(tags),
					Authors:         authors,
					CloseAfterFirst: once,
				})
			}
			if err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				listener.Stop()
				<-listener.Done()
			case <-listener.Done():
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated hashtags to follow")
	cmd.Flags().StringSliceVar(&authors, "author", nil, "author pubkey, hex or npub (repeatable)")
	cmd.Flags().BoolVar(&dms, "dms", false, "listen for direct messages instead of notes")
	cmd.Flags().BoolVar(&once, "once", false, "exit after the first event")
	return cmd
}

func formatTime(unix int64) string {
	return time.Unix(unix, 0).Format(time.RFC3339)
}

func short(pubkey string) string {
	if len(pubkey) > 8 {
		return pubkey[:8]
	}
	return pubkey
}
