package github

import (
	"strings"

	"github.com/kevinmichaelchen/topic-tagger/internal/models"
)

// ListOptions narrows the set of repositories returned by ListRepos. The two
// filters combine with a logical AND.
type ListOptions struct {
	OnlyPublic   bool
	OnlyUntagged bool
}

// Filter keeps repositories owned by owner that are not forks and satisfy
// opts. Order is preserved.
func Filter(repos []models.Repo, owner string, opts ListOptions) []models.Repo {
	out := make([]models.Repo, 0, len(repos))
	for _, r := range repos {
		if owner != "" && !strings.EqualFold(r.Owner, owner) {
			continue
		}
		if r.Fork {
			continue
		}
		if opts.OnlyPublic && !r.IsPublic() {
			continue
		}
		if opts.OnlyUntagged && !r.IsUntagged() {
			continue
		}
		out = append(out, r)
	}
	return out
}
