package llm

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverse struct {
	out     *bedrockruntime.ConverseOutput
	err     error
	modelID string
}

func (f *fakeConverse) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	if params.ModelId != nil {
		f.modelID = *params.ModelId
	}
	return f.out, f.err
}

func TestBedrockComplete(t *testing.T) {
	fake := &fakeConverse{
		out: &bedrockruntime.ConverseOutput{
			Output: &types.ConverseOutputMemberMessage{
				Value: types.Message{
					Content: []types.ContentBlock{
						&types.ContentBlockMemberText{Value: "part one "},
						&types.ContentBlockMemberText{Value: "part two"},
					},
				},
			},
		},
	}
	backend := NewBedrockWithClient(fake, "anthropic.claude-3-haiku")

	got, err := backend.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "part one part two", got)
	assert.Equal(t, "anthropic.claude-3-haiku", fake.modelID)
}

func TestBedrockCompleteEmpty(t *testing.T) {
	fake := &fakeConverse{
		out: &bedrockruntime.ConverseOutput{
			Output: &types.ConverseOutputMemberMessage{Value: types.Message{}},
		},
	}
	backend := NewBedrockWithClient(fake, "model")
	_, err := backend.Complete(context.Background(), "prompt")
	assert.Error(t, err)
}
