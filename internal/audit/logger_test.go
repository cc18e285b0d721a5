package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"tg-otp-relay/backend/internal/audit/domain"
	auditrepo "tg-otp-relay/backend/internal/audit/repository"
)

// failingRepo rejects every write.
type failingRepo struct{}

func (failingRepo) Create(context.Context, *domain.AuditLog) error {
	return errors.New("database error")
}

func (failingRepo) ListByTenant(context.Context, string, int) ([]*domain.AuditLog, error) {
	return nil, nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	logger := NewLogger(repo, func(context.Context) string { return "192.168.1.1" })
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	logger.nowF = func() time.Time { return fixed }

	logger.LogEvent(context.Background(), "PHOENIX_SOUL_RISE", "send", "otp", domain.OutcomeSuccess)

	entries, err := repo.ListByTenant(context.Background(), "PHOENIX_SOUL_RISE", 10)
	if err != nil {
		t.Fatalf("ListByTenant: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Action != "send" || entry.Resource != "otp" {
		t.Errorf("action/resource = %q/%q, want send/otp", entry.Action, entry.Resource)
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.Outcome != domain.OutcomeSuccess {
		t.Errorf("outcome = %q, want %q", entry.Outcome, domain.OutcomeSuccess)
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if !entry.CreatedAt.Equal(fixed) {
		t.Errorf("created_at = %v, want %v", entry.CreatedAt, fixed)
	}
}

func TestLogger_LogEvent_NoIPExtractor(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	logger := NewLogger(repo, nil)

	logger.LogEvent(context.Background(), "t1", "verify", "otp", domain.OutcomeSuccess)

	entries, _ := repo.ListByTenant(context.Background(), "t1", 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].IP != "unknown" {
		t.Errorf("ip = %q, want %q", entries[0].IP, "unknown")
	}
}

func TestLogger_LogEvent_SentinelTenantID(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	logger := NewLogger(repo, nil)

	logger.LogEvent(context.Background(), "", "send", "otp", domain.OutcomeFailure+":missing_credentials")

	entries, _ := repo.ListByTenant(context.Background(), SentinelTenantID, 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry under %q, got %d", SentinelTenantID, len(entries))
	}
}

func TestLogger_LogEvent_RepositoryError(t *testing.T) {
	logger := NewLogger(failingRepo{}, nil)
	// Best-effort: must not panic.
	logger.LogEvent(context.Background(), "t1", "send", "otp", domain.OutcomeSuccess)
}

func TestLogger_LogEvent_NilRepo(t *testing.T) {
	NewLogger(nil, nil).LogEvent(context.Background(), "t1", "send", "otp", domain.OutcomeSuccess)
	var nilLogger *Logger
	nilLogger.LogEvent(context.Background(), "t1", "send", "otp", domain.OutcomeSuccess)
}

func TestMemoryRepository_ListByTenant_NewestFirstWithLimit(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_ = repo.Create(context.Background(), &domain.AuditLog{
			ID: string(rune('a' + i)), TenantID: "t1", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	_ = repo.Create(context.Background(), &domain.AuditLog{ID: "other", TenantID: "t2", CreatedAt: base})

	got, err := repo.ListByTenant(context.Background(), "t1", 2)
	if err != nil {
		t.Fatalf("ListByTenant: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", got)
	}
}
