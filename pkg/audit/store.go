// Package audit implements the audit logger (§4.5): a write-mostly append
// store recording every interaction for compliance and clinician review,
// with two interchangeable durable backends (SQLite by default, Redis as
// an alternate) behind a common Store interface.
package audit

import (
	"context"
	"time"

	"github.com/clinicalcore/orchestrator/core"
)

// ListFilters narrows a List query (§6 audit query surface).
type ListFilters struct {
	Handler              string
	UserHash             string
	MinConfidencePercent int
	EscalationsOnly      bool
	SinceHours           int
	Limit                int
}

// ReviewUpdate captures the one permitted post-write mutation path: either
// a plain clinician review note, or a review accompanied by an override
// (§4.5 override path, §6 mark_reviewed).
type ReviewUpdate struct {
	ReviewedByHash  string
	ReviewNotes     *string
	ReviewTimestamp time.Time
	Override        *core.ClinicianOverride
}

// Store persists AuditEntry values. Implementations must support ordered
// insert and indexed lookup by handler name, timestamp, and escalation
// flag (§4.5).
type Store interface {
	// Insert assigns entry a process-monotonic numeric ID and persists it,
	// returning that ID.
	Insert(ctx context.Context, entry *core.AuditEntry) (int64, error)

	// Get returns the entry with the given numeric ID, or core.ErrNotFound
	// if absent.
	Get(ctx context.Context, id int64) (*core.AuditEntry, error)

	// List returns entries matching filters, newest first.
	List(ctx context.Context, filters ListFilters) ([]core.AuditEntry, error)

	// UpdateReview applies review to the entry with the given ID. Returns
	// core.ErrNotFound if absent, core.ErrAlreadyReviewed if the entry
	// already has a review recorded.
	UpdateReview(ctx context.Context, id int64, review ReviewUpdate) error

	// Close releases underlying resources (connections, file handles).
	Close() error
}
