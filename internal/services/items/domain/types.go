// Package domain defines the types and ports of the reconciliation flow
package domain

// Snapshot is the tracker-side state a reconciliation compares against.
// Transient; recomputed on every webhook delivery, never persisted.
type Snapshot struct {
	Status string
	// Assignees is the ordered login list; empty (never nil) when unassigned
	Assignees []string
	// DatabaseID is the numeric id embedded in the thread correlation token
	DatabaseID int
}

// ThreadRef locates the chat thread a tracker item was escalated into.
// Re-derived by search on every reconciliation.
type ThreadRef struct {
	Channel   string
	Timestamp string
	Text      string
}

// Change describes the single field edit carried by a tracker webhook
type Change struct {
	FieldID   string
	FieldType string
}

// FieldTypeAssignees is the webhook field type for assignee edits
const FieldTypeAssignees = "assignees"
