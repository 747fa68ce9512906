package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"ledgersync/pkg/backoff"
	"ledgersync/pkg/catalog"
	"ledgersync/pkg/events"
	"ledgersync/pkg/gateway"
	gatewaymemory "ledgersync/pkg/gateway/memory"
	"ledgersync/pkg/gateway/mock"
	"ledgersync/pkg/ledger"
	metricsmemory "ledgersync/pkg/metrics/memory"
)

func testCatalog() catalog.Catalog {
	return catalog.Catalog{
		{
			ID:             "checking",
			Name:           "Checking",
			Category:       catalog.Checking,
			Active:         true,
			TotalAmount:    decimal.Zero,
			CurrentBalance: decimal.Zero,
		},
		{
			ID:             "card",
			Name:           "Card",
			Category:       catalog.CreditCard,
			Active:         true,
			TotalAmount:    decimal.NewFromInt(1500),
			CurrentBalance: decimal.RequireFromString("1039.74"),
		},
		{
			ID:             "loan",
			Name:           "Loan",
			Category:       catalog.Loan,
			Active:         true,
			TotalAmount:    decimal.RequireFromString("1100.00"),
			CurrentBalance: decimal.RequireFromString("605.26"),
		},
	}
}

func newTestSynchronizer(t *testing.T, gw gateway.Gateway, publisher events.Publisher) *Synchronizer {
	t.Helper()
	s, err := New(gw, testConfig(), Options{
		Publisher: publisher,
		Sleeper:   backoff.NopSleeper,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return s
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 0
	if _, err := New(mock.New(), cfg, Options{}); err == nil {
		t.Error("Expected error but got none")
	}
}

func TestSynchronizer_Probe(t *testing.T) {
	tests := []struct {
		name        string
		status      gateway.CreateStatus
		expectError bool
	}{
		{"created", gateway.StatusCreated, false},
		{"already exists", gateway.StatusExists, false},
		{"rejected", gateway.StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := mock.New()
			gw.CreateFunc = func(ctx context.Context, records []ledger.Record) ([]gateway.CreateResult, error) {
				if len(records) != 1 || records[0].ID != 999999 {
					t.Errorf("Expected a single probe record with id 999999, got %v", records)
				}
				return []gateway.CreateResult{{ID: records[0].ID, Status: tt.status}}, nil
			}

			s := newTestSynchronizer(t, gw, nil)
			err := s.Probe(context.Background())
			if tt.expectError {
				if !errors.Is(err, ledger.ErrProbeFailed) {
					t.Errorf("Expected ErrProbeFailed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestSynchronizer_Probe_GatewayDown(t *testing.T) {
	gw := mock.New()
	gw.CreateFunc = func(ctx context.Context, records []ledger.Record) ([]gateway.CreateResult, error) {
		return nil, errors.New("connection refused")
	}

	s := newTestSynchronizer(t, gw, nil)
	if err := s.Probe(context.Background()); !errors.Is(err, ledger.ErrProbeFailed) {
		t.Errorf("Expected ErrProbeFailed, got %v", err)
	}
}

func TestSynchronizer_BuildRecords(t *testing.T) {
	s := newTestSynchronizer(t, mock.New(), nil)
	records := s.BuildRecords(testCatalog())

	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	for i, r := range records {
		if r.ID != uint64(100+i) {
			t.Errorf("Record %d: expected id %d, got %d", i, 100+i, r.ID)
		}
		if r.Ledger != 1 {
			t.Errorf("Record %d: expected ledger 1, got %d", i, r.Ledger)
		}
	}
	if records[1].DebitsPosted != 103974 || records[1].CreditsPosted != 150000 {
		t.Errorf("Card record has wrong balances: %s", records[1])
	}
}

func TestSynchronizer_SyncAccounts(t *testing.T) {
	cat := testCatalog()
	gw := gatewaymemory.New(gatewaymemory.Config{})
	publisher := events.NewMemory()
	collector := metricsmemory.New()

	s, err := New(gw, testConfig(), Options{
		Publisher: publisher,
		Metrics:   collector,
		Sleeper:   backoff.NopSleeper,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := s.SyncAccounts(context.Background(), cat); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// 3 account records plus the probe.
	if gw.Len() != 4 {
		t.Errorf("Expected 4 stored records, got %d", gw.Len())
	}

	synced := publisher.ByTopic(events.TopicAccountSynced)
	if len(synced) != 3 {
		t.Fatalf("Expected 3 account events, got %d", len(synced))
	}
	first := synced[0].Event.(events.AccountSynced)
	if first.AccountID != "checking" || first.LedgerID != 100 {
		t.Errorf("Unexpected first event: %+v", first)
	}
	if len(publisher.ByTopic(events.TopicSyncCompleted)) != 1 {
		t.Error("Expected a completion event")
	}
	if len(publisher.ByTopic(events.TopicSyncFailed)) != 0 {
		t.Error("Expected no failure event")
	}

	snap := collector.Snapshot()
	if snap.Runs != 1 || snap.RunFailures != 0 {
		t.Errorf("Expected 1 successful run, got runs=%d failures=%d", snap.Runs, snap.RunFailures)
	}
	if snap.Creates["created"] != 4 {
		t.Errorf("Expected 4 creates, got %d", snap.Creates["created"])
	}

	lastRun, ok := s.LastRun()
	if !ok {
		t.Fatal("Expected a last run summary")
	}
	if !lastRun.Success || lastRun.Accounts != 3 {
		t.Errorf("Unexpected last run: %+v", lastRun)
	}
}

func TestSynchronizer_SyncAccounts_Idempotent(t *testing.T) {
	cat := testCatalog()
	gw := gatewaymemory.New(gatewaymemory.Config{})
	collector := metricsmemory.New()

	s, err := New(gw, testConfig(), Options{
		Metrics: collector,
		Sleeper: backoff.NopSleeper,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ctx := context.Background()
	if err := s.SyncAccounts(ctx, cat); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if err := s.SyncAccounts(ctx, cat); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if gw.Len() != 4 {
		t.Errorf("Second run must not create new records, got %d", gw.Len())
	}

	snap := collector.Snapshot()
	if snap.Creates["created"] != 4 {
		t.Errorf("Expected 4 fresh creates, got %d", snap.Creates["created"])
	}
	if snap.Creates["exists"] != 4 {
		t.Errorf("Expected 4 duplicate creates, got %d", snap.Creates["exists"])
	}
}

func TestSynchronizer_SyncAccounts_DelayedVisibility(t *testing.T) {
	cat := testCatalog()
	gw := gatewaymemory.New(gatewaymemory.Config{VisibilityDelay: 3})

	s, err := New(gw, testConfig(), Options{Sleeper: backoff.NopSleeper})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := s.SyncAccounts(context.Background(), cat); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestSynchronizer_SyncAccounts_FailFast(t *testing.T) {
	cat := testCatalog()
	publisher := events.NewMemory()

	// The second account's create is rejected; the third must never be
	// submitted.
	gw := mock.New()
	gw.CreateFunc = func(ctx context.Context, records []ledger.Record) ([]gateway.CreateResult, error) {
		results := make([]gateway.CreateResult, len(records))
		for i, r := range records {
			results[i] = gateway.CreateResult{Index: i, ID: r.ID, Status: gateway.StatusCreated}
			if r.ID == 101 {
				results[i].Status = gateway.StatusFailed
				results[i].Code = 42
			}
		}
		return results, nil
	}
	gw.LookupFunc = func(ctx context.Context, ids []uint64) ([]ledger.Record, error) {
		return []ledger.Record{{ID: ids[0], DebitsPosted: 0, CreditsPosted: 0}}, nil
	}

	s := newTestSynchronizer(t, gw, publisher)
	err := s.SyncAccounts(context.Background(), cat)
	if err == nil {
		t.Fatal("Expected error but got none")
	}

	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("Expected a SyncError, got %T", err)
	}
	if syncErr.AccountID != "card" || syncErr.LedgerID != 101 {
		t.Errorf("Failure attributed to wrong account: %+v", syncErr)
	}
	if !errors.Is(err, ledger.ErrCreateFailed) {
		t.Errorf("Expected ErrCreateFailed cause, got %v", err)
	}

	// Probe + first account + failing second account.
	if gw.CreateCalls() != 3 {
		t.Errorf("Expected 3 creates before aborting, got %d", gw.CreateCalls())
	}

	failed := publisher.ByTopic(events.TopicSyncFailed)
	if len(failed) != 1 {
		t.Fatalf("Expected 1 failure event, got %d", len(failed))
	}
	if len(publisher.ByTopic(events.TopicSyncCompleted)) != 0 {
		t.Error("Aborted run must not publish completion")
	}

	lastRun, ok := s.LastRun()
	if !ok || lastRun.Success {
		t.Errorf("Expected a failed last run, got %+v", lastRun)
	}
}

func TestSynchronizer_SyncAccounts_MismatchAborts(t *testing.T) {
	cat := testCatalog()

	// Every record reads back with wrong balances. The run must stop at
	// the first account.
	gw := mock.New()
	gw.LookupFunc = func(ctx context.Context, ids []uint64) ([]ledger.Record, error) {
		return []ledger.Record{{ID: ids[0], DebitsPosted: 1, CreditsPosted: 1}}, nil
	}

	s := newTestSynchronizer(t, gw, nil)
	err := s.SyncAccounts(context.Background(), cat)
	if !ledger.IsMismatch(err) {
		t.Fatalf("Expected a mismatch error, got %v", err)
	}

	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("Expected a SyncError, got %T", err)
	}
	if syncErr.AccountID != "checking" {
		t.Errorf("Expected the first account to fail, got %q", syncErr.AccountID)
	}

	// Probe plus the first account only.
	if gw.CreateCalls() != 2 {
		t.Errorf("Expected 2 creates, got %d", gw.CreateCalls())
	}
}

func TestSynchronizer_SyncAccounts_ProbeFailureAbortsRun(t *testing.T) {
	cat := testCatalog()
	publisher := events.NewMemory()

	gw := mock.New()
	gw.CreateFunc = func(ctx context.Context, records []ledger.Record) ([]gateway.CreateResult, error) {
		return nil, errors.New("connection refused")
	}

	s := newTestSynchronizer(t, gw, publisher)
	err := s.SyncAccounts(context.Background(), cat)
	if !errors.Is(err, ledger.ErrProbeFailed) {
		t.Fatalf("Expected ErrProbeFailed, got %v", err)
	}
	if gw.CreateCalls() != 1 {
		t.Errorf("Only the probe should have been attempted, got %d creates", gw.CreateCalls())
	}
	if len(publisher.ByTopic(events.TopicSyncFailed)) != 1 {
		t.Error("Expected a failure event")
	}
}

func TestSynchronizer_SyncAccounts_InvalidCatalog(t *testing.T) {
	cat := catalog.Catalog{
		{ID: "a", Name: "A"},
		{ID: "a", Name: "Duplicate"},
	}

	gw := mock.New()
	s := newTestSynchronizer(t, gw, nil)

	if err := s.SyncAccounts(context.Background(), cat); err == nil {
		t.Fatal("Expected error but got none")
	}
	if gw.CreateCalls() != 0 {
		t.Errorf("Invalid catalog must not reach the gateway, got %d creates", gw.CreateCalls())
	}
}

// The checking account verifies (it expects zero balances), then the card
// record never becomes visible and the run fails at the attempt budget.
func TestSynchronizer_SyncAccounts_VerifyTimeout(t *testing.T) {
	cat := testCatalog()

	gw := mock.New()
	gw.LookupFunc = func(ctx context.Context, ids []uint64) ([]ledger.Record, error) {
		if ids[0] == 100 {
			return []ledger.Record{{ID: 100}}, nil
		}
		return nil, nil
	}

	s := newTestSynchronizer(t, gw, nil)
	err := s.SyncAccounts(context.Background(), cat)
	if !errors.Is(err, ledger.ErrVerifyTimeout) {
		t.Fatalf("Expected ErrVerifyTimeout, got %v", err)
	}

	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("Expected a SyncError, got %T", err)
	}
	if syncErr.AccountID != "card" {
		t.Errorf("Expected the card account to fail, got %q", syncErr.AccountID)
	}
}
