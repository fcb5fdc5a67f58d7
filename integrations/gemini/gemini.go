package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/pressgen/pressgen/domains/content"
)

// Generator produces blog articles through the Gemini API using structured
// JSON output.
type Generator struct {
	apiKey string
	model  string

	// SystemPrompt is prepended as the system instruction when not empty.
	// Resolved per call so runtime settings changes take effect immediately.
	SystemPrompt func(ctx context.Context) string
}

func NewGenerator(apiKey, model string) *Generator {
	return &Generator{apiKey: apiKey, model: model}
}

type articleResponse struct {
	Content             string `json:"content"`
	SuggestedCategories []struct {
		Name   string `json:"name"`
		Parent string `json:"parent"`
	} `json:"suggested_categories"`
}

func (g *Generator) Generate(ctx context.Context, request content.GenerateRequest) (content.Article, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return content.Article{}, &content.GenerationError{Err: fmt.Errorf("gemini api key is not configured")}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return content.Article{}, &content.GenerationError{Err: err}
	}

	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseJsonSchema: &genai.Schema{
			Type: "object",
			Properties: map[string]*genai.Schema{
				"content": {
					Type:        "string",
					Description: "The full article body as clean HTML (p, h2, h3, ul, ol, li tags only, no html/head/body wrapper)",
				},
				"suggested_categories": {
					Type:        "array",
					Description: "One or two blog categories this article belongs to",
					Items: &genai.Schema{
						Type: "object",
						Properties: map[string]*genai.Schema{
							"name": {
								Type:        "string",
								Description: "Category name",
							},
							"parent": {
								Type:        "string",
								Description: "Parent category name, empty for top-level",
							},
						},
						Required: []string{"name"},
					},
				},
			},
			Required:         []string{"content", "suggested_categories"},
			PropertyOrdering: []string{"content", "suggested_categories"},
		},
	}

	systemText := ""
	if g.SystemPrompt != nil {
		systemText = strings.TrimSpace(g.SystemPrompt(ctx))
	}
	if systemText != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: BuildPrompt(request)},
			},
		},
	}

	result, err := client.Models.GenerateContent(ctx, g.model, contents, genConfig)
	if err != nil {
		return content.Article{}, &content.GenerationError{Err: err}
	}
	if result == nil {
		return content.Article{}, &content.GenerationError{Err: fmt.Errorf("empty response from model %s", g.model)}
	}

	article, err := ParseArticle(request.Title, result.Text())
	if err != nil {
		logrus.WithError(err).Error("[GEMINI] failed to parse structured article response")
		return content.Article{}, &content.GenerationError{Err: err}
	}
	return article, nil
}

// BuildPrompt renders the generation instructions for one article.
func BuildPrompt(request content.GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s blog article titled %q about %q.\n", request.Type, request.Title, request.Topic)
	fmt.Fprintf(&b, "Target length: around %d words.\n", request.WordCount)
	fmt.Fprintf(&b, "Tone: %s. Audience: %s.\n", request.Tone, request.Audience)
	b.WriteString("Structure the body with h2/h3 subheadings and short paragraphs. ")
	b.WriteString("Use the main keyword naturally in the first paragraph. ")
	b.WriteString("Return only the JSON object described by the schema.")
	return b.String()
}

// ParseArticle decodes the structured model output into an article.
func ParseArticle(title, raw string) (content.Article, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return content.Article{}, fmt.Errorf("model returned no text")
	}

	var resp articleResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return content.Article{}, fmt.Errorf("invalid structured response: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return content.Article{}, fmt.Errorf("model returned an empty article body")
	}

	article := content.Article{
		Title:   title,
		Content: resp.Content,
	}
	for _, c := range resp.SuggestedCategories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		article.SuggestedCategories = append(article.SuggestedCategories, content.Category{
			Name:   name,
			Parent: strings.TrimSpace(c.Parent),
		})
	}
	return article, nil
}
