package content

import (
	"context"
	"errors"
)

// PostStatus mirrors the CMS publication states used by the executor.
type PostStatus string

const (
	PostStatusDraft   PostStatus = "draft"
	PostStatusPublish PostStatus = "publish"
)

// Category is a taxonomy term suggested by the generator or managed on the CMS.
type Category struct {
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

// GenerateRequest carries the seed and style parameters of one generation.
type GenerateRequest struct {
	Title     string
	Topic     string
	Type      string
	WordCount int
	Tone      string
	Audience  string
}

// Article is the generator's output: the body plus suggested taxonomy terms.
type Article struct {
	Title               string
	Content             string
	SuggestedCategories []Category
}

// Generator produces article text and category suggestions.
type Generator interface {
	Generate(ctx context.Context, request GenerateRequest) (Article, error)
}

// PostRequest describes one post creation on the CMS.
type PostRequest struct {
	Title      string
	Content    string
	Status     PostStatus
	Categories []Category
}

// PostRef identifies a created post.
type PostRef struct {
	ID   int64  `json:"id"`
	Link string `json:"link,omitempty"`
}

// Publisher creates posts and taxonomy terms on the target CMS.
type Publisher interface {
	CreatePost(ctx context.Context, request PostRequest) (PostRef, error)
	Ping(ctx context.Context) error
}

// GenerationError marks a failed or unusable generation call. Always a hard
// failure for a run.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PublishError marks a failed CMS call. A term collision is recoverable: the
// post was still created, only the taxonomy name already existed.
type PublishError struct {
	Code           string
	Message        string
	TermCollision  bool
	ExistingTermID int64
}

func (e *PublishError) Error() string {
	if e.Code != "" {
		return "publish failed (" + e.Code + "): " + e.Message
	}
	return "publish failed: " + e.Message
}

// IsTermCollision reports whether err is a PublishError caused by a taxonomy
// name collision.
func IsTermCollision(err error) bool {
	var pe *PublishError
	return errors.As(err, &pe) && pe.TermCollision
}
