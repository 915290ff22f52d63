package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ehallmark/agentstr/pkg/a2a"
	"github.com/ehallmark/agentstr/pkg/config"
	"github.com/ehallmark/agentstr/pkg/nostr"
)

func newServeCmd() *cobra.Command {
	var cardPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an agent: route incoming direct messages against an agent card",
		Long: `Serves an agent identity. Each incoming encrypted direct message is routed
against the agent card's skills; the routing decision's user-facing message
is sent back to the requester. Conversation history is kept per sender.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			card, err := loadCard(cardPath)
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			completer, err := newCompleter(ctx, cfg)
			if err != nil {
				return err
			}
			store, err := newConversationStore(cfg)
			if err != nil {
				return err
			}
			router := a2a.NewRouter(completer, a2a.WithConversationStore(store))

			stopMetrics := startMetrics(cfg)
			defer func() { _ = stopMetrics(context.Background()) }()

			// Advertise the identity this card serves.
			if card.Name != "" {
				upd := nostr.MetadataUpdate{Name: nostr.String(card.Name)}
				if card.Description != "" {
					upd.About = nostr.String(card.Description)
				}
				if err := client.UpdateMetadata(ctx, upd); err != nil {
					log.Printf("serve: metadata update failed: %v", err)
				}
			}

			listener, err := client.ListenForDirectMessages(ctx, func(ev *nostr.Event, content string) {
				decision := router.Route(ctx, content, &card, ev.PubKey)
				reply := decision.UserMessage
				if reply == "" {
					reply = "I can't help with that request."
				}
				if err := client.SendDirectMessage(ctx, ev.PubKey, reply, ev.ID); err != nil {
					log.Printf("serve: reply to %s failed: %v", short(ev.PubKey), err)
					return
				}
				log.Printf("serve: handled request from %s (can_handle=%t cost=%d sats)",
					short(ev.PubKey), decision.CanHandle, decision.CostSats)
			}, nostr.DMOptions{})
			if err != nil {
				return err
			}

			fmt.Printf("serving agent %q as %s\n", card.Name, client.PublicKey())
			select {
			case <-ctx.Done():
				listener.Stop()
				<-listener.Done()
			case <-listener.Done():
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cardPath, "card", "card.json", "path to the agent card JSON file")
	return cmd
}

func loadCard(path string) (a2a.AgentCard, error) {
	var card a2a.AgentCard
	data, err := os.ReadFile(path)
	if err != nil {
		return card, fmt.Errorf("read agent card: %w", err)
	}
	if err := json.Unmarshal(data, &card); err != nil {
		return card, fmt.Errorf("parse agent card: %w", err)
	}
	if card.Name == "" {
		return card, fmt.Errorf("agent card has no name")
	}
	return card, nil
}

func newConversationStore(cfg *config.Config) (a2a.ConversationStore, error) {
	switch cfg.Conversation.Backend {
	case "", "memory":
		return a2a.NewMemoryStore(cfg.Conversation.MaxThreads), nil
	case "redis":
		if cfg.Conversation.RedisAddr == "" {
			return nil, fmt.Errorf("conversation.redis_addr is required for the redis backend")
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.Conversation.RedisAddr})
		ttl := time.Duration(cfg.Conversation.TTLSeconds) * time.Second
		return a2a.NewRedisStore(client, "", ttl), nil
	default:
		return nil, fmt.Errorf("unknown conversation backend: %q", cfg.Conversation.Backend)
	}
}
