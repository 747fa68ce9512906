// Package events defines the publisher abstraction for sync lifecycle
// events and the event payloads themselves. The kafka subpackage provides
// the production implementation; Memory and Nop cover tests and runs
// without a broker.
package events

import (
	"context"
	"sync"
	"time"
)

// Topics the synchronizer publishes to.
const (
	TopicAccountSynced = "ledgersync.account_synced"
	TopicSyncCompleted = "ledgersync.sync_completed"
	TopicSyncFailed    = "ledgersync.sync_failed"
)

// AccountSynced is published after an account's record is created (or
// confirmed pre-existing) and its balances verified.
type AccountSynced struct {
	RunID         string    `json:"run_id"`
	AccountID     string    `json:"account_id"`
	LedgerID      uint64    `json:"ledger_id"`
	DebitsPosted  uint64    `json:"debits_posted"`
	CreditsPosted uint64    `json:"credits_posted"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// SyncCompleted is published when a whole run verifies successfully.
type SyncCompleted struct {
	RunID      string    `json:"run_id"`
	Accounts   int       `json:"accounts"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SyncFailed is published when a run aborts.
type SyncFailed struct {
	RunID      string    `json:"run_id"`
	AccountID  string    `json:"account_id,omitempty"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events to interested consumers. Publishing is
// best-effort from the synchronizer's point of view: a publish failure is
// logged but never fails a run.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Nop discards all events.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(ctx context.Context, topic string, event any) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }

// Published is an event captured by the Memory publisher.
type Published struct {
	Topic string
	Event any
}

// Memory records published events for inspection in tests.
type Memory struct {
	mu     sync.Mutex
	events []Published
}

// NewMemory creates an empty in-memory publisher.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish implements Publisher.
func (m *Memory) Publish(ctx context.Context, topic string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Published{Topic: topic, Event: event})
	return nil
}

// Close implements Publisher.
func (m *Memory) Close() error { return nil }

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Published, len(m.events))
	copy(out, m.events)
	return out
}

// ByTopic returns the captured events published to the given topic.
func (m *Memory) ByTopic(topic string) []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Published
	for _, e := range m.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}
