package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"NewsVideoPipeline/internal/domain"
)

type namedScanner string

func (n namedScanner) Name() string { return string(n) }

func (n namedScanner) Scan(context.Context, Request) ([]domain.Article, error) { return nil, nil }

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(namedScanner("rss"), namedScanner("reddit"))
	require.Equal(t, []string{"reddit", "rss"}, reg.Names())

	s, err := reg.Resolve("rss")
	require.NoError(t, err)
	require.Equal(t, "rss", s.Name())

	_, err = reg.Resolve("hackernews")
	require.EqualError(t, err, "scanner hackernews is not registered")

	var empty Registry
	empty.Register(namedScanner("rss"))
	_, err = empty.Resolve("rss")
	require.NoError(t, err)
}
