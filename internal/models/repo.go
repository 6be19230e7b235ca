package models

import "strings"

type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityPrivate  Visibility = "private"
	VisibilityInternal Visibility = "internal"
)

// Repo is a repository owned by the authenticated user, as reported by the
// list call.
type Repo struct {
	Owner      string     `json:"owner"`
	Name       string     `json:"name"`
	FullName   string     `json:"full_name"`
	Visibility Visibility `json:"visibility"`
	Fork       bool       `json:"fork"`
	Topics     []string   `json:"topics"`
	CloneURL   string     `json:"clone_url"`
}

func (r Repo) IsPublic() bool {
	return r.Visibility == VisibilityPublic
}

func (r Repo) IsUntagged() bool {
	return len(r.Topics) == 0
}

// SampleFile is one file picked from a clone, already truncated.
type SampleFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Sample is the bounded subset of a repository's files sent to the LLM.
type Sample struct {
	Repo  string       `json:"repo"`
	Files []SampleFile `json:"files"`
}

func (s Sample) Empty() bool {
	return len(s.Files) == 0
}

// Size returns the number of content bytes held by the sample.
func (s Sample) Size() int {
	n := 0
	for _, f := range s.Files {
		n += len(f.Content)
	}
	return n
}

// Render formats the sample as prompt text, one "# path" header per file.
func (s Sample) Render() string {
	parts := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		parts = append(parts, "# "+f.Path+"\n"+f.Content)
	}
	return strings.Join(parts, "\n")
}

// TopicSuggestion holds normalized topic names inferred for one repository.
type TopicSuggestion []string

// MaxTopics is the most topics GitHub accepts on a repository.
const MaxTopics = 20
