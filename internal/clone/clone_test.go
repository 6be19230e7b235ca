package clone

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinmichaelchen/topic-tagger/internal/models"
)

func TestWithClone_FailureCleansUp(t *testing.T) {
	tests := []struct {
		name string
		repo models.Repo
	}{
		{
			name: "unreachable remote",
			repo: models.Repo{
				Name:     "gone",
				FullName: "alice/gone",
				CloneURL: filepath.Join(t.TempDir(), "does-not-exist.git"),
			},
		},
		{
			name: "missing clone URL",
			repo: models.Repo{Name: "blank", FullName: "alice/blank"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			f := NewFetcher("", "", nil).WithTempRoot(root)

			called := false
			err := f.WithClone(context.Background(), tt.repo, func(string) error {
				called = true
				return nil
			})

			require.Error(t, err)
			var cloneErr *CloneError
			require.ErrorAs(t, err, &cloneErr)
			assert.Equal(t, tt.repo.FullName, cloneErr.Repo)
			assert.False(t, called)

			entries, err := os.ReadDir(root)
			require.NoError(t, err)
			assert.Empty(t, entries, "temporary clone directory should be removed")
		})
	}
}

func TestWithClone_CanceledContext(t *testing.T) {
	root := t.TempDir()
	f := NewFetcher("alice", "token", nil).WithTempRoot(root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := models.Repo{Name: "demo", FullName: "alice/demo", CloneURL: "https://127.0.0.1:1/alice/demo.git"}
	err := f.WithClone(ctx, repo, func(string) error { return nil })

	var cloneErr *CloneError
	require.ErrorAs(t, err, &cloneErr)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
