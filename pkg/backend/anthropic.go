package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/peakform/coachflow/pkg/schema"
)

// Anthropic implements the Client interface on the Messages streaming API.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates a new Anthropic backend.
func NewAnthropic(apiKey, model string) (*Anthropic, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Anthropic{client: client, model: model}, nil
}

// Name returns the backend identifier.
func (c *Anthropic) Name() string {
	return "anthropic"
}

// Stream sends the request and translates message stream events into
// stream events. Tool use blocks arrive fragmented, so function calls are
// emitted from the accumulated message once the stream finishes.
func (c *Anthropic) Stream(ctx context.Context, req schema.ChatRequest) (<-chan schema.StreamEvent, error) {
	params := c.buildParams(req)
	ch := make(chan schema.StreamEvent)

	go func() {
		defer close(ch)

		stream := c.client.Messages.NewStreaming(ctx, params)
		message := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				emit(ctx, ch, schema.ErrorEvent(fmt.Errorf("anthropic accumulate error: %w", err)))
				return
			}

			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					if !emit(ctx, ch, schema.TextDelta(delta.Text)) {
						return
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			emit(ctx, ch, schema.ErrorEvent(fmt.Errorf("anthropic stream error: %w", err)))
			return
		}

		for _, block := range message.Content {
			if tool, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
				call := schema.FunctionCall{Name: tool.Name, Arguments: parseRawArguments(tool.Input)}
				if !emit(ctx, ch, schema.FunctionCallEvent(call)) {
					return
				}
			}
		}

		if tokens := int(message.Usage.InputTokens + message.Usage.OutputTokens); tokens > 0 {
			if !emit(ctx, ch, schema.UsageEvent(tokens)) {
				return
			}
		}
		emit(ctx, ch, schema.Done())
	}()

	return ch, nil
}

func (c *Anthropic) buildParams(req schema.ChatRequest) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == schema.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if len(req.Functions) > 0 {
		params.Tools = anthropicTools(req.Functions)
	}
	return params
}

func anthropicTools(functions []schema.FunctionDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(functions))
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
		tool := anthropic.ToolParam{
			Name:        fn.Name,
			Description: anthropic.String(fn.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   fn.Required,
			},
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return tools
}

func parseRawArguments(raw json.RawMessage) map[string]any {
	args := make(map[string]any)
	if len(raw) == 0 {
		return args
	}
	_ = json.Unmarshal(raw, &args)
	return args
}
