package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kevinmichaelchen/topic-tagger/internal/models"
)

// maxTopicLen is stricter than GitHub's own 50-character limit; longer
// answers are almost always sentences rather than tags.
const maxTopicLen = 35

// InferenceError covers a failed completion call and a response that carries
// no usable text.
type InferenceError struct {
	Repo string
	Err  error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inferring topics for %s: %v", e.Repo, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// AuthenticationError means the completion endpoint rejected the API key.
// Every later call would fail the same way, so the run should stop.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("llm: credentials rejected: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// IsFatal reports whether err should stop the whole run.
func IsFatal(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

type Client struct {
	client *openai.Client
	model  string
}

func NewClient(baseURL, apiKey, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

const instruction = "Given the following code snippets from a GitHub repository, suggest 3-8 relevant GitHub topics " +
	"(single words or short phrases) that best describe the repository. " +
	"Return only a comma-separated list of topics, no explanations."

// SuggestTopics asks the model for topics describing sample. A response that
// parses to zero valid topics is returned as an empty suggestion, not an
// error.
func (c *Client) SuggestTopics(ctx context.Context, sample models.Sample) (models.TopicSuggestion, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: instruction + "\n\n" + sample.Render()},
		},
		MaxTokens:   64,
		Temperature: 0.3,
	})
	if err != nil {
		if unauthorized(err) {
			return nil, &AuthenticationError{Err: err}
		}
		return nil, &InferenceError{Repo: sample.Repo, Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &InferenceError{Repo: sample.Repo, Err: fmt.Errorf("no choices returned")}
	}

	content := stripCodeFences(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, &InferenceError{Repo: sample.Repo, Err: fmt.Errorf("empty completion")}
	}

	return ParseTopics(content), nil
}

func unauthorized(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusUnauthorized
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusUnauthorized
	}
	return false
}

var (
	listMarker        = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)
	invalidTopicChars = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRuns        = regexp.MustCompile(`-{2,}`)
)

// ParseTopics splits a comma- or newline-separated model answer into
// normalized GitHub topic names: lowercase, hyphenated, [a-z0-9-] only,
// de-duplicated, at most models.MaxTopics.
func ParseTopics(content string) models.TopicSuggestion {
	fields := strings.FieldsFunc(content, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})

	seen := make(map[string]bool, len(fields))
	topics := models.TopicSuggestion{}
	for _, f := range fields {
		t := normalize(f)
		if t == "" || len(t) > maxTopicLen || seen[t] {
			continue
		}
		seen[t] = true
		topics = append(topics, t)
		if len(topics) == models.MaxTopics {
			break
		}
	}
	return topics
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = listMarker.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = invalidTopicChars.ReplaceAllString(s, "")
	s = hyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// stripCodeFences unwraps a topic list the model put inside a markdown fence
// despite being asked for a bare comma-separated line.
func stripCodeFences(s string) string {
	body, fenced := strings.CutPrefix(strings.TrimSpace(s), "```")
	if !fenced {
		return strings.TrimSpace(s)
	}
	// The opening fence line may carry a language tag ("```text").
	if _, rest, ok := strings.Cut(body, "\n"); ok {
		body = rest
	}
	body, _, _ = strings.Cut(body, "```")
	return strings.TrimSpace(body)
}
