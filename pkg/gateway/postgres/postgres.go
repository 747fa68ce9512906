// Package postgres implements the ledger gateway on top of PostgreSQL.
// It is intended for deployments where the balance store is a relational
// database rather than the dedicated ledger service; the at-most-once
// creation semantics are enforced by the primary key.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"ledgersync/pkg/gateway"
	"ledgersync/pkg/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_accounts (
	id             BIGINT PRIMARY KEY,
	debits_posted  BIGINT NOT NULL,
	credits_posted BIGINT NOT NULL,
	ledger         INTEGER NOT NULL,
	code           INTEGER NOT NULL,
	flags          INTEGER NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Gateway is a PostgreSQL-backed ledger gateway.
type Gateway struct {
	db   *sql.DB
	name string
}

// New wraps an open database handle. The caller owns the handle's pool
// configuration; Close closes it.
func New(db *sql.DB) *Gateway {
	return &Gateway{db: db, name: "postgres"}
}

// Open connects using a lib/pq DSN and verifies the connection.
func Open(ctx context.Context, dsn string) (*Gateway, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return New(db), nil
}

// EnsureSchema creates the backing table if it does not exist.
func (g *Gateway) EnsureSchema(ctx context.Context) error {
	if _, err := g.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// CreateAccounts inserts each record at most once. A conflicting id leaves
// the stored row untouched and reports StatusExists.
func (g *Gateway) CreateAccounts(ctx context.Context, records []ledger.Record) ([]gateway.CreateResult, error) {
	const insert = `
		INSERT INTO ledger_accounts (id, debits_posted, credits_posted, ledger, code, flags)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	results := make([]gateway.CreateResult, len(records))
	for i, r := range records {
		res := gateway.CreateResult{Index: i, ID: r.ID}

		out, err := g.db.ExecContext(ctx, insert,
			int64(r.ID), int64(r.DebitsPosted), int64(r.CreditsPosted),
			int64(r.Ledger), int64(r.Code), int64(r.Flags))
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Class() == "23" {
				// Integrity violation other than the id conflict: the
				// record itself is bad, not the transport.
				res.Status = gateway.StatusFailed
				results[i] = res
				continue
			}
			return nil, fmt.Errorf("postgres: create id=%d: %w", r.ID, err)
		}

		affected, err := out.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("postgres: create id=%d: %w", r.ID, err)
		}
		if affected == 0 {
			res.Status = gateway.StatusExists
		} else {
			res.Status = gateway.StatusCreated
		}
		results[i] = res
	}
	return results, nil
}

// LookupAccounts returns the records found among the requested ids.
func (g *Gateway) LookupAccounts(ctx context.Context, ids []uint64) ([]ledger.Record, error) {
	const query = `
		SELECT id, debits_posted, credits_posted, ledger, code, flags
		FROM ledger_accounts
		WHERE id = ANY($1)`

	idArgs := make([]int64, len(ids))
	for i, id := range ids {
		idArgs[i] = int64(id)
	}

	rows, err := g.db.QueryContext(ctx, query, pq.Array(idArgs))
	if err != nil {
		return nil, fmt.Errorf("postgres: lookup: %w", err)
	}
	defer rows.Close()

	var found []ledger.Record
	for rows.Next() {
		var id, debits, credits, ledgerID, code, flags int64
		if err := rows.Scan(&id, &debits, &credits, &ledgerID, &code, &flags); err != nil {
			return nil, fmt.Errorf("postgres: lookup scan: %w", err)
		}
		found = append(found, ledger.Record{
			ID:            uint64(id),
			DebitsPosted:  uint64(debits),
			CreditsPosted: uint64(credits),
			Ledger:        uint32(ledgerID),
			Code:          uint16(code),
			Flags:         ledger.Flags(flags),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: lookup: %w", err)
	}
	return found, nil
}

// Name implements gateway.Gateway.
func (g *Gateway) Name() string { return g.name }

// Close closes the underlying database handle.
func (g *Gateway) Close() error { return g.db.Close() }

var _ gateway.Gateway = (*Gateway)(nil)
