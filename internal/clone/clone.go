// Package clone makes throwaway shallow checkouts of repositories.
package clone

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"

	"github.com/kevinmichaelchen/topic-tagger/internal/models"
)

// CloneError wraps any failure of the clone itself (network, auth, deleted
// repository, empty repository).
type CloneError struct {
	Repo string
	Err  error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("cloning %s: %v", e.Repo, e.Err)
}

func (e *CloneError) Unwrap() error { return e.Err }

type Fetcher struct {
	username string
	token    string
	// tempRoot is the parent for clone directories; empty means os.TempDir.
	tempRoot string
	logger   *zap.Logger
}

func NewFetcher(username, token string, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{username: username, token: token, logger: logger}
}

// WithTempRoot places clone directories under dir instead of the system
// temp directory.
func (f *Fetcher) WithTempRoot(dir string) *Fetcher {
	f.tempRoot = dir
	return f
}

// WithClone clones repo at depth 1 into a fresh temporary directory, calls fn
// with the checkout path, and removes the directory afterwards whether the
// clone or fn succeeded or not.
func (f *Fetcher) WithClone(ctx context.Context, repo models.Repo, fn func(dir string) error) error {
	tmp, err := os.MkdirTemp(f.tempRoot, "topic-tagger-*")
	if err != nil {
		return &CloneError{Repo: repo.FullName, Err: fmt.Errorf("creating temp dir: %w", err)}
	}
	defer func() {
		if rmErr := os.RemoveAll(tmp); rmErr != nil {
			f.logger.Warn("removing clone directory",
				zap.String("repository", repo.FullName),
				zap.String("dir", tmp),
				zap.Error(rmErr),
			)
		}
	}()

	dir := filepath.Join(tmp, repo.Name)
	if err := f.clone(ctx, repo, dir); err != nil {
		return err
	}
	return fn(dir)
}

func (f *Fetcher) clone(ctx context.Context, repo models.Repo, dir string) error {
	if repo.CloneURL == "" {
		return &CloneError{Repo: repo.FullName, Err: errors.New("no clone URL")}
	}

	f.logger.Debug("cloning", zap.String("repository", repo.FullName), zap.String("dir", dir))

	opts := &git.CloneOptions{
		URL:          repo.CloneURL,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if f.token != "" {
		opts.Auth = &githttp.BasicAuth{Username: f.username, Password: f.token}
	}

	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		return &CloneError{Repo: repo.FullName, Err: err}
	}
	return nil
}
