package video

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/newtube/newtube/internal/validate"
)

const (
	jobTimeout         = 2 * time.Minute
	purgeTimeout       = 30 * time.Second
	deleteMaxAttempts  = 3
	thumbnailKeyPrefix = "thumbnails/"
	previewKeyPrefix   = "previews/"
)

// runJob runs fn on its own goroutine with a detached deadline. Wait blocks
// on every job started here.
func (h *Handler) runJob(name string, timeout time.Duration, fn func(ctx context.Context) error) {
	h.jobs.Add(1)
	go func() {
		defer h.jobs.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			slog.Error("video: background job failed", "job", name, "error", err)
		}
	}()
}

// purgeObjects removes stored files in the background.
func (h *Handler) purgeObjects(keys ...string) {
	var pending []string
	for _, k := range keys {
		if k != "" {
			pending = append(pending, k)
		}
	}
	if len(pending) == 0 {
		return
	}
	h.runJob("purge_objects", purgeTimeout, func(ctx context.Context) error {
		var firstErr error
		for _, key := range pending {
			if err := deleteWithRetry(ctx, h.storage, key, deleteMaxAttempts); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	})
}

func deleteWithRetry(ctx context.Context, storage ObjectStorage, key string, maxAttempts int) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		lastErr = storage.DeleteObject(ctx, key)
		if lastErr == nil {
			return nil
		}
		slog.Error("storage: delete attempt failed", "attempt", attempt+1, "max_attempts", maxAttempts, "key", key, "error", lastErr)
	}
	return fmt.Errorf("all %d delete attempts failed for %s: %w", maxAttempts, key, lastErr)
}

func thumbnailKey(scope string) string {
	return fmt.Sprintf("%s%s/%s.png", thumbnailKeyPrefix, scope, uuid.NewString())
}

func previewKey(scope string) string {
	return fmt.Sprintf("%s%s/%s.gif", previewKeyPrefix, scope, uuid.NewString())
}

// uuidParam returns the named URL parameter when it is a well-formed UUID.
func uuidParam(r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	return id, validate.UUID(id)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
