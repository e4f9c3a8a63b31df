package vendorlog

import (
	"context"
	"testing"
	"time"
)

func TestService_CreateRequiresWorkspaceAndCall(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.Create(context.Background(), Record{CallID: "c"}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Create(context.Background(), Record{WorkspaceID: "w"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_StampsRecord(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return fixed }

	err := svc.Create(context.Background(), Record{
		WorkspaceID: "w", CallID: "c",
		VendorName: "Parts Plus", Purpose: "invoice question",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	recs := repo.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record")
	}
	if recs[0].ID == "" {
		t.Fatalf("id not stamped")
	}
	if !recs[0].CreatedAt.Equal(fixed) {
		t.Fatalf("created_at = %v", recs[0].CreatedAt)
	}
}
