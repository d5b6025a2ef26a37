package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/askdocs/docqa-api/pkg/errors"
)

func TestCacheRepositoryDegradesWithoutRedis(t *testing.T) {
	repo := NewCacheRepository(nil, nil)

	var dest map[string]string
	err := repo.Get(context.Background(), "qa_query:1:abc", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(context.Background(), "qa_query:1:abc", map[string]string{"answer": "x"}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(context.Background(), "qa_query:1:*"))
}
