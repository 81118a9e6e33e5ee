// Package store defines the backend-agnostic persistence contract for
// verification results (C11), with an embedded (SQLite) and a remote
// (Postgres or JSON-over-HTTP) implementation. Grounded on
// original_source/store/duckdb_io.py (schema, upsert-by-PK, batched-
// transaction write, get_stats' top-domains query) for the semantics, and
// themadorg-madmail/go.mod (postgres + sqlite dialectors under one gorm.io/gorm)
// for how to express two backends behind one ORM in Go.
package store

import (
	"context"
	"time"

	"mailnexy/internal/model"
)

// DomainCount is one row of the top-domains breakdown.
type DomainCount struct {
	Domain string
	Count  int64
}

// Stats summarizes the verified_emails table for the /stats endpoint.
type Stats struct {
	Total           int64
	ByReachability  map[model.Reachability]int64
	CatchAllCount   int64
	DisposableCount int64
	TopDomains      []DomainCount
}

// QueryFilter narrows a paginated listing of stored results.
type QueryFilter struct {
	Reachability model.Reachability // empty = any
	Domain       string             // empty = any
	Limit        int
	Cursor       string // opaque, backend-defined pagination token
}

// QueryPage is one page of a filtered listing.
type QueryPage struct {
	Results    []model.VerificationResult
	NextCursor string // empty means no further pages
}

// Store persists and retrieves verification results. Implementations must
// be safe for concurrent use.
type Store interface {
	// Lookup returns a previously stored result for normalizedEmail, if any
	// and if it has not logically expired (caller applies TTL policy).
	Lookup(ctx context.Context, normalizedEmail string) (model.VerificationResult, bool, error)

	// Upsert writes a single result, replacing any prior row for the same
	// normalized email.
	Upsert(ctx context.Context, result model.VerificationResult) error

	// UpsertBatch writes many results in as few round trips as the backend
	// allows. Returns the number of rows written.
	UpsertBatch(ctx context.Context, results []model.VerificationResult) (int, error)

	// Stats computes aggregate counts for observability endpoints.
	Stats(ctx context.Context) (Stats, error)

	// Query returns a filtered, paginated listing of stored results.
	Query(ctx context.Context, filter QueryFilter) (QueryPage, error)

	// Close releases any underlying connection/handle.
	Close() error
}

// row is the GORM-mapped table shape shared by both SQL-backed
// implementations, following original_source/store/duckdb_io.py's
// verified_emails schema. VerificationResult.Error has no column: it is not
// stored and reads back empty.
type row struct {
	Email         string    `gorm:"primaryKey;column:email"`
	Normalized    string    `gorm:"column:normalized;index"`
	Reachability  string    `gorm:"column:reachability;index"`
	IsDeliverable *bool     `gorm:"column:is_deliverable"`
	IsCatchAll    *bool     `gorm:"column:is_catch_all"`
	IsDisposable  bool      `gorm:"column:is_disposable"`
	IsRole        bool      `gorm:"column:is_role"`
	IsFree        bool      `gorm:"column:is_free"`
	MXHost        string    `gorm:"column:mx_host"`
	SMTPCode      int       `gorm:"column:smtp_code"`
	SMTPMessage   string    `gorm:"column:smtp_message"`
	Provider      string    `gorm:"column:provider"`
	Domain        string    `gorm:"column:domain;index"`
	VerifiedAt    time.Time `gorm:"column:verified_at;index"`
}

func (row) TableName() string { return "verified_emails" }

func toRow(r model.VerificationResult) row {
	verifiedAt := r.VerifiedAt
	if verifiedAt.IsZero() {
		verifiedAt = time.Now().UTC()
	}
	return row{
		Email:         r.Email,
		Normalized:    r.Normalized,
		Reachability:  string(r.Reachability),
		IsDeliverable: r.IsDeliverable,
		IsCatchAll:    r.IsCatchAll,
		IsDisposable:  r.IsDisposable,
		IsRole:        r.IsRole,
		IsFree:        r.IsFree,
		MXHost:        r.MXHost,
		SMTPCode:      r.SMTPCode,
		SMTPMessage:   r.SMTPMessage,
		Provider:      string(r.Provider),
		Domain:        r.Domain,
		VerifiedAt:    verifiedAt,
	}
}

func fromRow(r row) model.VerificationResult {
	return model.VerificationResult{
		Email:         r.Email,
		Normalized:    r.Normalized,
		Reachability:  model.Reachability(r.Reachability),
		IsDeliverable: r.IsDeliverable,
		IsCatchAll:    r.IsCatchAll,
		IsDisposable:  r.IsDisposable,
		IsRole:        r.IsRole,
		IsFree:        r.IsFree,
		MXHost:        r.MXHost,
		SMTPCode:      r.SMTPCode,
		SMTPMessage:   r.SMTPMessage,
		Provider:      model.Provider(r.Provider),
		Domain:        r.Domain,
		VerifiedAt:    r.VerifiedAt,
	}
}
