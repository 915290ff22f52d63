package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPublishCmd() *cobra.Command {
	var tags string

	cmd := &cobra.Command{
		Use:   "publish <content>",
		Short: "Publish a public note",
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

			ev, err := client.PublishNote(cmd.Context(), args[0], splitTags(tags))
			if err != nil {
				return err
			}
			fmt.Printf("published note %s\n", ev.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated hashtags")
	return cmd
}
