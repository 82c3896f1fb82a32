package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/peakform/coachflow/pkg/schema"
)

// OpenAI implements the Client interface on the OpenAI chat completions
// streaming API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates a new OpenAI backend.
func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAI{client: client, model: model}, nil
}

// Name returns the backend identifier.
func (c *OpenAI) Name() string {
	return "openai"
}

// Stream sends the request and translates chat completion chunks into
// stream events.
func (c *OpenAI) Stream(ctx context.Context, req schema.ChatRequest) (<-chan schema.StreamEvent, error) {
	params := c.buildParams(req)
	ch := make(chan schema.StreamEvent)

	go func() {
		defer close(ch)

		stream := c.client.Chat.Completions.NewStreaming(ctx, params)
		acc := openai.ChatCompletionAccumulator{}
		tokens := 0

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) > 0 {
				if delta := chunk.Choices[0].Delta.Content; delta != "" {
					if !emit(ctx, ch, schema.TextDelta(delta)) {
						return
					}
				}
			}

			if tool, ok := acc.JustFinishedToolCall(); ok {
				call := schema.FunctionCall{Name: tool.Name, Arguments: parseArguments(tool.Arguments)}
				if !emit(ctx, ch, schema.FunctionCallEvent(call)) {
					return
				}
			}

			if chunk.Usage.TotalTokens > 0 {
				tokens = int(chunk.Usage.TotalTokens)
			}
		}

		if err := stream.Err(); err != nil {
			emit(ctx, ch, schema.ErrorEvent(fmt.Errorf("openai stream error: %w", err)))
			return
		}

		if req.ResponseFormat == schema.ResponseFormatJSON && len(acc.Choices) > 0 {
			if content := acc.Choices[0].Message.Content; content != "" {
				if !emit(ctx, ch, schema.StructuredDataEvent([]byte(content))) {
					return
				}
			}
		}
		if tokens > 0 {
			if !emit(ctx, ch, schema.UsageEvent(tokens)) {
				return
			}
		}
		emit(ctx, ch, schema.Done())
	}()

	return ch, nil
}

func (c *OpenAI) buildParams(req schema.ChatRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		if m.Role == schema.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.User != "" {
		params.User = openai.String(req.User)
	}
	if req.ResponseFormat == schema.ResponseFormatJSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	if len(req.Functions) > 0 {
		params.Tools = toolParams(req.Functions)
	}
	return params
}

func toolParams(functions []schema.FunctionDefinition) []openai.ChatCompletionToolUnionParam {
	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(functions))
	for _, fn := range functions {
		properties := make(map[string]any, len(fn.Parameters))
		for name, param := range fn.Parameters {
			prop := map[string]any{"type": param.Type}
			if param.Description != "" {
				prop["description"] = param.Description
			}
			if len(param.Enum) > 0 {
				prop["enum"] = param.Enum
			}
			properties[name] = prop
		}
		tools = append(tools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        fn.Name,
			Description: openai.String(fn.Description),
			Parameters: shared.FunctionParameters{
				"type":       "object",
				"properties": properties,
				"required":   fn.Required,
			},
		}))
	}
	return tools
}

func parseArguments(raw string) map[string]any {
	args := make(map[string]any)
	if raw == "" {
		return args
	}
	_ = json.Unmarshal([]byte(raw), &args)
	return args
}
