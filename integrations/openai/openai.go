package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/pressgen/pressgen/domains/content"
	"github.com/pressgen/pressgen/integrations/gemini"
)

// Generator is the OpenAI-backed article generator, selected when
// AI_PROVIDER=openai.
type Generator struct {
	apiKey string
	model  string

	SystemPrompt func(ctx context.Context) string
}

func NewGenerator(apiKey, model string) *Generator {
	return &Generator{apiKey: apiKey, model: model}
}

func (g *Generator) Generate(ctx context.Context, request content.GenerateRequest) (content.Article, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return content.Article{}, &content.GenerationError{Err: fmt.Errorf("openai api key is not configured")}
	}

	client := openai.NewClient(option.WithAPIKey(g.apiKey))

	var messages []openai.ChatCompletionMessageParamUnion
	if g.SystemPrompt != nil {
		if systemText := strings.TrimSpace(g.SystemPrompt(ctx)); systemText != "" {
			messages = append(messages, openai.SystemMessage(systemText))
		}
	}
	messages = append(messages, openai.UserMessage(gemini.BuildPrompt(request)))

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{"type": "string"},
			"suggested_categories": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":   map[string]any{"type": "string"},
						"parent": map[string]any{"type": "string"},
					},
					"required":             []string{"name", "parent"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"content", "suggested_categories"},
		"additionalProperties": false,
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "article",
					Schema: any(schema),
					Strict: openai.Bool(true),
				},
			},
		},
	}

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return content.Article{}, &content.GenerationError{Err: err}
	}
	if len(completion.Choices) == 0 {
		return content.Article{}, &content.GenerationError{Err: fmt.Errorf("no response from openai model %s", g.model)}
	}

	article, err := gemini.ParseArticle(request.Title, completion.Choices[0].Message.Content)
	if err != nil {
		return content.Article{}, &content.GenerationError{Err: err}
	}
	return article, nil
}
