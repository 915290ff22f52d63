package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ehallmark/agentstr/pkg/nostr"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Read and update profile metadata",
	}
	cmd.AddCommand(newProfileGetCmd(), newProfileSetCmd())
	return cmd
}

func newProfileGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [pubkey]",
		Short: "Fetch profile metadata for a pubkey (own profile by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			pubkey := ""
			if len(args) == 1 {
				pubkey = args[0]
			}
			meta, err := client.ProfileMetadata(cmd.Context(), pubkey)
			if err != nil {
				return err
			}
			if meta == nil {
				fmt.Println("no profile metadata found")
				return nil
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(meta)
		},
	}
}

func newProfileSetCmd() *cobra.Command {
	var name, about, picture, nip05, lud16, website, displayName string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update profile metadata fields (unset flags keep their current value)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			var upd nostr.MetadataUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				upd.Name = nostr.String(name)
			}
			if flags.Changed("about") {
				upd.About = nostr.String(about)
			}
			if flags.Changed("picture") {
				upd.Picture = nostr.String(picture)
			}
			if flags.Changed("nip05") {
				upd.NIP05 = nostr.String(nip05)
			}
			if flags.Changed("lud16") {
				upd.LUD16 = nostr.String(lud16)
			}
			if flags.Changed("website") {
				upd.Website = nostr.String(website)
			}
			if flags.Changed("display-name") {
				upd.DisplayName = nostr.String(displayName)
			}

			if err := client.UpdateMetadata(cmd.Context(), upd); err != nil {
				return err
			}
			fmt.Println("profile updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "profile name")
	cmd.Flags().StringVar(&about, "about", "", "about text")
	cmd.Flags().StringVar(&picture, "picture", "", "picture URL")
	cmd.Flags().StringVar(&nip05, "nip05", "", "NIP-05 identifier")
	cmd.Flags().StringVar(&lud16, "lud16", "", "lightning address")
	cmd.Flags().StringVar(&website, "website", "", "website URL")
	cmd.Flags().StringVar(&displayName, "display-name", "", "display name")
	return cmd
}
