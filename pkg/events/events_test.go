package events

import (
	"context"
	"testing"
	"time"
)

func TestMemory_Publish(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	synced := AccountSynced{RunID: "run-1", AccountID: "card", LedgerID: 101}
	if err := m.Publish(ctx, TopicAccountSynced, synced); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	completed := SyncCompleted{RunID: "run-1", Accounts: 1, OccurredAt: time.Now()}
	if err := m.Publish(ctx, TopicSyncCompleted, completed); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	all := m.Events()
	if len(all) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(all))
	}
	if all[0].Topic != TopicAccountSynced {
		t.Errorf("Expected %q first, got %q", TopicAccountSynced, all[0].Topic)
	}

	byTopic := m.ByTopic(TopicAccountSynced)
	if len(byTopic) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(byTopic))
	}
	got := byTopic[0].Event.(AccountSynced)
	if got.AccountID != "card" || got.LedgerID != 101 {
		t.Errorf("Unexpected event: %+v", got)
	}

	if len(m.ByTopic(TopicSyncFailed)) != 0 {
		t.Error("Expected no failure events")
	}
}

func TestMemory_EventsIsACopy(t *testing.T) {
	m := NewMemory()
	if err := m.Publish(context.Background(), TopicSyncFailed, SyncFailed{RunID: "run-1"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	events := m.Events()
	events[0] = Published{Topic: "mutated"}

	if m.Events()[0].Topic != TopicSyncFailed {
		t.Error("Mutating the returned slice must not affect the recorder")
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(context.Background(), TopicSyncCompleted, SyncCompleted{}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
