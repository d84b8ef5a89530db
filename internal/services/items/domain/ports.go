package domain

import "context"

// TrackerPort is the slice of the tracker client reconciliation needs
type TrackerPort interface {
	// ItemType returns the rendered classification name, "" when unset
	ItemType(ctx context.Context, nodeID string) (string, error)

	// ItemSnapshot fetches status and assignee logins for a project item
	ItemSnapshot(ctx context.Context, nodeID string) (Snapshot, error)
}

// MessengerPort is the slice of the chat client reconciliation needs
type MessengerPort interface {
	// SearchThread returns the best-ranked message matching query.
	// A NotFound error means no thread exists, which callers absorb silently.
	SearchThread(ctx context.Context, query string) (ThreadRef, error)

	EditMessage(ctx context.Context, channel, timestamp, text string) error
	PostReply(ctx context.Context, channel, parentTimestamp, text string) error
}
