package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// bedrockConverseAPI abstracts the Bedrock runtime call for testability.
type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Bedrock satisfies Completer via the AWS Bedrock Converse API.
type Bedrock struct {
	client bedrockConverseAPI
	model  string
}

// NewBedrock creates a Bedrock backend using the default AWS credential chain.
func NewBedrock(ctx context.Context, region, model string) (*Bedrock, error) {
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Bedrock{client: bedrockruntime.NewFromConfig(awsCfg), model: model}, nil
}

// NewBedrockWithClient creates a Bedrock backend with an injected client.
func NewBedrockWithClient(client bedrockConverseAPI, model string) *Bedrock {
	return &Bedrock{client: client, model: model}
}

// Complete implements Completer.
func (b *Bedrock) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := b.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.model),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: prompt},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock converse: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", errors.New("bedrock converse: unexpected output type")
	}
	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("bedrock converse: empty response")
	}
	return sb.String(), nil
}
