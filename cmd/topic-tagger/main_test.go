package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinmichaelchen/topic-tagger/internal/config"
)

func TestRootCmd_Flags(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"only-public", "only-untagged", "log-level", "log-format"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
	for _, name := range []string{"dry-run", "concurrency"} {
		assert.NotNil(t, root.Flags().Lookup(name), name)
	}

	list, _, err := root.Find([]string{"list"})
	require.NoError(t, err)
	assert.Equal(t, "list", list.Name())
	assert.NotNil(t, list.InheritedFlags().Lookup("only-public"))
	assert.Nil(t, list.Flags().Lookup("dry-run"))
}

func TestRootCmd_MissingCredentialsFails(t *testing.T) {
	t.Setenv("GITHUB_USERNAME", "")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "")

	root := newRootCmd()
	root.SetArgs([]string{"--only-public", "--log-level", "error"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)

	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Len(t, cerr.Missing, 3)
}

func TestRootCmd_BadLogLevel(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--log-level", "loud"})

	err := root.ExecuteContext(context.Background())
	assert.EqualError(t, err, "unsupported log level: loud")
}
