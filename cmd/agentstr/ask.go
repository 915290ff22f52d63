package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ehallmark/agentstr/pkg/llm"
	"github.com/ehallmark/agentstr/pkg/rag"
)

func newAskCmd() *cobra.Command {
	var limit, topK int

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from recent public posts (retrieval-augmented)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.LLM.Provider != "openai" {
				return fmt.Errorf("ask requires the openai provider (embeddings)")
			}
			if cfg.LLM.APIKey == "" {
				return fmt.Errorf("llm.api_key is required")
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}

			var opts []llm.OpenAIOption
			if cfg.LLM.EmbeddingModel != "" {
				opts = append(opts, llm.WithEmbeddingModel(cfg.LLM.EmbeddingModel))
			}
			model := llm.NewOpenAI(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, opts...)

			pipeline, err := rag.New(model, model, client,
				rag.WithPostLimit(limit), rag.WithTopK(topK))
			if err != nil {
				return err
			}
			answer, err := pipeline.Query(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(answer)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum posts to fetch per hashtag query")
	cmd.Flags().IntVar(&topK, "top-k", 5, "documents to feed the answer prompt")
	return cmd
}
