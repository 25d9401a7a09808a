package common

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/cloudboost/cloudboost-api/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type recorder struct {
	calls []string
	err   error
}

func (r *recorder) Track(_ context.Context, _ uuid.UUID, metric string, _ float64, _ domain.JSONMap) error {
	r.calls = append(r.calls, metric)
	return r.err
}

func TestTrack(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	Track(ctx, logger, nil, uuid.New(), "content_generated", 1, nil)

	rec := &recorder{}
	Track(ctx, logger, rec, uuid.New(), "content_generated", 1, nil)
	Track(ctx, logger, rec, uuid.New(), "messages_sent", 0, nil)
	assert.Equal(t, []string{"content_generated"}, rec.calls)

	rec.err = errors.New("db down")
	Track(ctx, logger, rec, uuid.New(), "posts_published", 2, nil)
	assert.Len(t, rec.calls, 2)
}
