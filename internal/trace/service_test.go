package trace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

func TestService_AppendRequiresWorkspaceAndCall(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.Append(context.Background(), Record{CallID: "c"}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Record{WorkspaceID: "w"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_StampsIDAndTime(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	err := svc.Append(context.Background(), Record{
		WorkspaceID: "w", CallID: "c", TurnNumber: 1,
		RawInput: "um hello", Action: "ASK_FOLLOWUP",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	recs := repo.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record")
	}
	if recs[0].ID == "" || recs[0].CreatedAt.IsZero() {
		t.Fatalf("id/created_at not stamped: %+v", recs[0])
	}
}

func TestWriter_PersistsInBackground(t *testing.T) {
	repo := NewMemoryRepo()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWriterBuffered(NewService(repo), log, 8)

	for i := 0; i < 5; i++ {
		w.Submit(Record{WorkspaceID: "w", CallID: "c", TurnNumber: i + 1})
	}
	w.Close()

	if got := len(repo.Records()); got != 5 {
		t.Fatalf("records = %d, want 5", got)
	}
	if w.Dropped() != 0 {
		t.Fatalf("dropped = %d", w.Dropped())
	}
}

// blockingRepo holds Append until released, to force backpressure.
type blockingRepo struct {
	release chan struct{}
	once    sync.Once
	inner   *MemoryRepo
}

func (b *blockingRepo) Append(ctx context.Context, rec Record) error {
	<-b.release
	return b.inner.Append(ctx, rec)
}

func TestWriter_DropsWhenBufferFull(t *testing.T) {
	repo := &blockingRepo{release: make(chan struct{}), inner: NewMemoryRepo()}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWriterBuffered(NewService(repo), log, 1)

	// One record may be in-flight with the worker plus one buffered;
	// everything beyond that must be dropped, not block.
	for i := 0; i < 10; i++ {
		w.Submit(Record{WorkspaceID: "w", CallID: "c", TurnNumber: i})
	}
	if w.Dropped() == 0 {
		t.Fatalf("expected drops under backpressure")
	}
	close(repo.release)
	w.Close()
}

func TestWriter_LogsFailedWrites(t *testing.T) {
	repo := failingRepo{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWriterBuffered(NewService(repo), log, 4)

	w.Submit(Record{WorkspaceID: "w", CallID: "c"})
	w.Close() // must not panic or hang on sink errors
}

type failingRepo struct{}

func (failingRepo) Append(ctx context.Context, rec Record) error {
	return errors.New("sink down")
}
