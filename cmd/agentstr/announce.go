package main

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/ehallmark/agentstr/pkg/nostr"
)

func newAnnounceCmd() *cobra.Command {
	var (
		schedule string
		name     string
		about    string
		note     string
		tags     string
	)

	cmd := &cobra.Command{
		Use:   "announce",
		Short: "Periodically re-publish profile metadata and an announcement note",
		Long: `Keeps an agent discoverable: on the given cron schedule, republish the
profile metadata and optionally a public announcement note. The metadata
publish is skipped by the relay client when nothing changed.`,
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
			stopMetrics := startMetrics(cfg)
			defer func() { _ = stopMetrics(context.Background()) }()

			announce := func() {
				var upd nostr.MetadataUpdate
				if name != "" {
					upd.Name = nostr.String(name)
				}
				if about != "" {
					upd.About = nostr.String(about)
				}
				if upd != (nostr.MetadataUpdate{}) {
					if err := client.UpdateMetadata(ctx, upd); err != nil {
						log.Printf("announce: metadata update failed: %v", err)
					}
				}
				if note != "" {
					if _, err := client.PublishNote(ctx, note, splitTags(tags)); err != nil {
						log.Printf("announce: note publish failed: %v", err)
					}
				}
			}

			c := cron.New()
			if _, err := c.AddFunc(schedule, announce); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}

			announce() // run once at startup, then on schedule
			c.Start()
			fmt.Printf("announcing on schedule %q (ctrl-c to stop)\n", schedule)

			<-ctx.Done()
			<-c.Stop().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "@hourly", "cron schedule")
	cmd.Flags().StringVar(&name, "name", "", "profile name to maintain")
	cmd.Flags().StringVar(&about, "about", "", "profile about text to maintain")
	cmd.Flags().StringVar(&note, "note", "", "announcement note content")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated hashtags for the note")
	return cmd
}
