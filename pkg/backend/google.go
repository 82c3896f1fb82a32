package backend

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/peakform/coachflow/pkg/schema"
)

// Google implements the Client interface on the Gemini streaming API.
type Google struct {
	client *genai.Client
	model  string
}

// NewGoogle creates a new Google Gemini backend.
func NewGoogle(apiKey, model string) (*Google, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}
	return &Google{client: client, model: model}, nil
}

// Name returns the backend identifier.
func (c *Google) Name() string {
	return "google"
}

// Stream sends the request and translates generate-content chunks into
// stream events.
func (c *Google) Stream(ctx context.Context, req schema.ChatRequest) (<-chan schema.StreamEvent, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == schema.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	cfg := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.ResponseFormat == schema.ResponseFormatJSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if len(req.Functions) > 0 {
		cfg.Tools = googleTools(req.Functions)
	}

	ch := make(chan schema.StreamEvent)
	go func() {
		defer close(ch)

		tokens := 0
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, contents, cfg) {
			if err != nil {
				emit(ctx, ch, schema.ErrorEvent(fmt.Errorf("google stream error: %w", err)))
				return
			}
			for _, candidate := range resp.Candidates {
				if candidate.Content == nil {
					continue
				}
				for _, part := range candidate.Content.Parts {
					if part.Text != "" {
						if !emit(ctx, ch, schema.TextDelta(part.Text)) {
							return
						}
					}
					if part.FunctionCall != nil {
						call := schema.FunctionCall{
							Name:      part.FunctionCall.Name,
							Arguments: part.FunctionCall.Args,
						}
						if !emit(ctx, ch, schema.FunctionCallEvent(call)) {
							return
						}
					}
				}
			}
			if resp.UsageMetadata != nil && resp.UsageMetadata.TotalTokenCount > 0 {
				tokens = int(resp.UsageMetadata.TotalTokenCount)
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

func googleTools(functions []schema.FunctionDefinition) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(functions))
	for _, fn := range functions {
		properties := make(map[string]*genai.Schema, len(fn.Parameters))
		for name, param := range fn.Parameters {
			prop := &genai.Schema{
				Type:        genaiType(param.Type),
				Description: param.Description,
			}
			if len(param.Enum) > 0 {
				prop.Enum = param.Enum
			}
			properties[name] = prop
		}
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        fn.Name,
			Description: fn.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   fn.Required,
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func genaiType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}
