package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pressgen/pressgen/domains/content"
)

const httpTimeout = 15 * time.Second

// termExistsCode is the error code WordPress returns when a taxonomy term
// name already exists. Recoverable: the existing term id comes back in the
// error data.
const termExistsCode = "term_exists"

// Client talks to the WordPress REST API using application-password basic
// auth.
type Client struct {
	baseURL     string
	username    string
	appPassword string
	httpClient  *http.Client
}

func NewClient(baseURL, username, appPassword string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		username:    username,
		appPassword: appPassword,
		httpClient:  &http.Client{Timeout: httpTimeout},
	}
}

type wpError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status int   `json:"status"`
		TermID int64 `json:"term_id"`
	} `json:"data"`
}

type wpTerm struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Parent int64  `json:"parent"`
}

type wpPost struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}

// CreatePost publishes one post. Missing categories are created first; a
// term name collision still attaches the existing term and creates the
// post, then surfaces as a PublishError with TermCollision set so callers
// can downgrade it to a warning. The returned PostRef is valid in that
// case.
func (c *Client) CreatePost(ctx context.Context, request content.PostRequest) (content.PostRef, error) {
	var categoryIDs []int64
	var collision *content.PublishError

	for _, cat := range request.Categories {
		id, err := c.EnsureCategory(ctx, cat)
		if err != nil {
			var pe *content.PublishError
			if errors.As(err, &pe) && pe.TermCollision {
				if collision == nil {
					collision = pe
				}
				if id > 0 {
					categoryIDs = append(categoryIDs, id)
				}
				continue
			}
			return content.PostRef{}, err
		}
		categoryIDs = append(categoryIDs, id)
	}

	body := map[string]any{
		"title":   request.Title,
		"content": request.Content,
		"status":  string(request.Status),
	}
	if len(categoryIDs) > 0 {
		body["categories"] = categoryIDs
	}

	var post wpPost
	if err := c.jsonRequest(ctx, http.MethodPost, c.baseURL+"/wp-json/wp/v2/posts", body, &post); err != nil {
		return content.PostRef{}, err
	}

	ref := content.PostRef{ID: post.ID, Link: post.Link}
	if collision != nil {
		logrus.Warnf("[WORDPRESS] post %d created with term collision: %s", post.ID, collision.Message)
		return ref, collision
	}
	return ref, nil
}

// EnsureCategory creates a category and returns its id. When the name
// already exists the existing id is returned together with the collision
// error.
func (c *Client) EnsureCategory(ctx context.Context, category content.Category) (int64, error) {
	body := map[string]any{"name": category.Name}
	if strings.TrimSpace(category.Parent) != "" {
		parentID, err := c.findCategoryByName(ctx, category.Parent)
		if err == nil && parentID > 0 {
			body["parent"] = parentID
		}
	}

	var term wpTerm
	err := c.jsonRequest(ctx, http.MethodPost, c.baseURL+"/wp-json/wp/v2/categories", body, &term)
	if err == nil {
		return term.ID, nil
	}

	var pe *content.PublishError
	if errors.As(err, &pe) && pe.TermCollision {
		if pe.ExistingTermID > 0 {
			return pe.ExistingTermID, pe
		}
		if id, findErr := c.findCategoryByName(ctx, category.Name); findErr == nil {
			return id, pe
		}
		return 0, pe
	}
	return 0, err
}

// Ping verifies the CMS is reachable and the credentials are accepted.
func (c *Client) Ping(ctx context.Context) error {
	return c.jsonRequest(ctx, http.MethodGet, c.baseURL+"/wp-json/wp/v2/categories?per_page=1", nil, nil)
}

func (c *Client) findCategoryByName(ctx context.Context, name string) (int64, error) {
	searchURL := fmt.Sprintf("%s/wp-json/wp/v2/categories?search=%s&per_page=20", c.baseURL, url.QueryEscape(name))
	var terms []wpTerm
	if err := c.jsonRequest(ctx, http.MethodGet, searchURL, nil, &terms); err != nil {
		return 0, err
	}
	for _, t := range terms {
		if strings.EqualFold(t.Name, name) {
			return t.ID, nil
		}
	}
	return 0, fmt.Errorf("category %q not found", name)
}

// jsonRequest unifies request creation, execution and decoding against the
// WP REST API. HTTP error payloads become PublishErrors.
func (c *Client) jsonRequest(ctx context.Context, method, url string, body any, dest any) error {
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.appPassword)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &content.PublishError{Message: err.Error()}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 400 {
		var apiErr wpError
		if jsonErr := json.Unmarshal(data, &apiErr); jsonErr == nil && apiErr.Code != "" {
			return &content.PublishError{
				Code:           apiErr.Code,
				Message:        apiErr.Message,
				TermCollision:  apiErr.Code == termExistsCode,
				ExistingTermID: apiErr.Data.TermID,
			}
		}
		return &content.PublishError{
			Message: fmt.Sprintf("request failed: status=%d body=%s", resp.StatusCode, truncate(string(data), 512)),
		}
	}

	if dest != nil {
		return json.Unmarshal(data, dest)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
