package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"linkpage/internal/tasks"
)

type recorderFunc func(ctx context.Context, ev tasks.Event) error

func (f recorderFunc) Record(ctx context.Context, ev tasks.Event) error { return f(ctx, ev) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAnalyticsTaskRecordsEvent(t *testing.T) {
	var got tasks.Event
	handler := NewAnalyticsTaskHandler(recorderFunc(func(_ context.Context, ev tasks.Event) error {
		got = ev
		return nil
	}), discardLogger())

	want := tasks.Event{Kind: tasks.KindView, ProfileID: uuid.New(), OccurredAt: time.Now().UTC()}
	task, err := tasks.NewAnalyticsTrackTask(want)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := handler.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}
	if got.ProfileID != want.ProfileID || got.Kind != tasks.KindView {
		t.Fatalf("unexpected recorded event %+v", got)
	}
}

func TestAnalyticsTaskSkipsRetryOnBadPayload(t *testing.T) {
	called := false
	handler := NewAnalyticsTaskHandler(recorderFunc(func(context.Context, tasks.Event) error {
		called = true
		return nil
	}), discardLogger())

	for _, payload := range []string{"{", `{"kind":"click","profile_id":"` + uuid.NewString() + `"}`} {
		err := handler.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeAnalyticsTrack, []byte(payload)))
		if !errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("payload %q: expected SkipRetry, got %v", payload, err)
		}
	}
	if called {
		t.Fatalf("recorder must not see malformed events")
	}
}

func TestAnalyticsTaskPropagatesStorageErrors(t *testing.T) {
	boom := errors.New("db down")
	handler := NewAnalyticsTaskHandler(recorderFunc(func(context.Context, tasks.Event) error {
		return boom
	}), discardLogger())

	task, err := tasks.NewAnalyticsTrackTask(tasks.Event{Kind: tasks.KindView, ProfileID: uuid.New(), OccurredAt: time.Now()})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := handler.ProcessTask(context.Background(), task); !errors.Is(err, boom) {
		t.Fatalf("expected storage error to be retried, got %v", err)
	}
}
