// Command agentstr is the operator CLI for Nostr agent identities: profile
// management, publishing, listening, and interactive chat with remote agents.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ehallmark/agentstr/internal/observability"
	"github.com/ehallmark/agentstr/pkg/config"
	"github.com/ehallmark/agentstr/pkg/llm"
	"github.com/ehallmark/agentstr/pkg/nostr"
	obsserver "github.com/ehallmark/agentstr/pkg/observability"
)

var (
	configPath string
	relayFlags []string
	keyFlag    string
)

func main() {
	root := &cobra.Command{
		Use:           "agentstr",
		Short:         "Nostr agent toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().StringSliceVar(&relayFlags, "relay", nil, "relay URL (repeatable, overrides config)")
	root.PersistentFlags().StringVar(&keyFlag, "key", "", "secret key, hex or nsec (overrides config)")

	root.AddCommand(
		newServeCmd(),
		newProfileCmd(),
		newPublishCmd(),
		newListenCmd(),
		newDMCmd(),
		newChatCmd(),
		newAskCmd(),
		newAnnounceCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := observability.InitFromEnv(); err != nil {
		log.Printf("tracing init failed: %v", err)
	}
	defer func() {
		if err := observability.Shutdown(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration: file or environment, with
// flag overrides on top.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.FromEnv()
	}
	if len(relayFlags) > 0 {
		cfg.Relays = relayFlags
	}
	if keyFlag != "" {
		cfg.PrivateKey = keyFlag
	}
	return cfg, nil
}

// newClient builds the messaging client from configuration. The key is
// optional; without one the client is read-only.
func newClient(cfg *config.Config) (*nostr.Client, error) {
	if len(cfg.Relays) == 0 {
		return nil, fmt.Errorf("no relays configured (use --relay or NOSTR_RELAYS)")
	}
	opts := []nostr.Option{}
	if cfg.PrivateKey != "" {
		opts = append(opts, nostr.WithSecretKey(cfg.PrivateKey))
	}
	return nostr.New(cfg.Relays, opts...)
}

// newCompleter builds the configured completion provider.
func newCompleter(ctx context.Context, cfg *config.Config) (llm.Completer, error) {
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("llm.api_key is required for the openai provider")
		}
		return llm.NewOpenAI(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model), nil
	case "bedrock":
		return llm.NewBedrock(ctx, "", cfg.LLM.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.LLM.Provider)
	}
}

// startMetrics starts the metrics endpoint when enabled. Returns a shutdown
// function.
func startMetrics(cfg *config.Config) func(context.Context) error {
	if !cfg.Metrics.Enabled {
		return func(context.Context) error { return nil }
	}
	obsserver.InitMetrics()
	srv := obsserver.NewServer(cfg.Metrics.Port)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server: %v", err)
		}
	}()
	return srv.Shutdown
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(strings.TrimPrefix(t, "#")); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
