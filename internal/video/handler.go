package video

import (
	"context"
	"sync"
	"time"

	"github.com/newtube/newtube/internal/database"
	"github.com/newtube/newtube/internal/mux"
	"github.com/newtube/newtube/internal/storage"
	"github.com/newtube/newtube/internal/webhook"
)

type ObjectStorage interface {
	UploadFromURL(ctx context.Context, key string, url string) (storage.Object, error)
	DeleteObject(ctx context.Context, key string) error
}

type MuxClient interface {
	CreateUpload(ctx context.Context, passthrough string) (*mux.Upload, error)
	FetchTranscript(ctx context.Context, playbackID, trackID string) (string, error)
}

type MetadataGenerator interface {
	GenerateTitle(ctx context.Context, transcript string) (string, error)
	GenerateDescription(ctx context.Context, transcript string) (string, error)
	GenerateThumbnail(ctx context.Context, prompt string) (string, error)
}

// CommentCounter caches per-video comment totals.
type CommentCounter interface {
	GetCount(ctx context.Context, videoID string) (n int64, gen int64, ok bool)
	SetCount(ctx context.Context, videoID string, n int64, gen int64)
	Invalidate(ctx context.Context, videoID string)
}

type CountryResolver interface {
	Country(addr string) string
}

type Handler struct {
	db               database.DBTX
	storage          ObjectStorage
	mux              MuxClient
	muxWebhookSecret string
	webhookTolerance time.Duration
	generator        MetadataGenerator
	counter          CommentCounter
	geo              CountryResolver
	now              func() time.Time
	jobs             sync.WaitGroup
}

func NewHandler(db database.DBTX, s ObjectStorage, m MuxClient, muxWebhookSecret string) *Handler {
	return &Handler{
		db:               db,
		storage:          s,
		mux:              m,
		muxWebhookSecret: muxWebhookSecret,
		webhookTolerance: webhook.DefaultTolerance,
		counter:          noopCounter{},
		geo:              noopResolver{},
		now:              time.Now,
	}
}

// SetGenerator enables the AI endpoints.
func (h *Handler) SetGenerator(g MetadataGenerator) {
	h.generator = g
}

func (h *Handler) SetCommentCounter(c CommentCounter) {
	if c != nil {
		h.counter = c
	}
}

func (h *Handler) SetCountryResolver(r CountryResolver) {
	if r != nil {
		h.geo = r
	}
}

// Wait blocks until background jobs finish or ctx is done.
func (h *Handler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type noopCounter struct{}

func (noopCounter) GetCount(context.Context, string) (int64, int64, bool) { return 0, -1, false }
func (noopCounter) SetCount(context.Context, string, int64, int64)       {}
func (noopCounter) Invalidate(context.Context, string)                   {}

type noopResolver struct{}

func (noopResolver) Country(string) string { return "" }
