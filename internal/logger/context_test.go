package logger_test

import (
	"context"
	"testing"

	"github.com/jonesrussell/north-cloud/draft-review/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContext_FromContext_RoundTrip(t *testing.T) {
	t.Parallel()

	l := logger.Must(logger.Config{Level: "warn", OutputPaths: []string{"stderr"}})
	ctx := logger.WithContext(context.Background(), l)

	assert.Same(t, l, logger.FromContext(ctx))
}

func TestFromContext_FallbackIsSingleton(t *testing.T) {
	t.Parallel()

	a := logger.FromContext(context.Background())
	b := logger.FromContext(context.Background())

	require.NotNil(t, a)
	assert.Same(t, a, b)

	// warn-level fallback filters these but must not panic
	a.Debug("debug")
	a.Info("info", logger.String("key", "value"))
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	t.Parallel()

	l, err := logger.New(logger.Config{Level: "verbose", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)

	child := l.With(logger.String("component", "query"))
	assert.NotSame(t, l, child)
}
