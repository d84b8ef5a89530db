package domain

import "context"

// TrackerPort is the slice of the tracker client the creation flow needs
type TrackerPort interface {
	// ResolveUserID maps a chat-side login to a tracker user id.
	// "" with a nil error means the login has no tracker-side user.
	ResolveUserID(ctx context.Context, login string) (string, error)

	// CreateTask creates a draft item. A nil CreatedTask with a nil error is
	// the recoverable "tracker answered with an unexpected shape" signal.
	CreateTask(ctx context.Context, fields CreationFields) (*CreatedTask, error)

	// CurrentSprintID returns "" with a nil error when no iteration covers now
	CurrentSprintID(ctx context.Context) (string, error)

	SetInitialStatus(ctx context.Context, itemID string) error
	SetSprint(ctx context.Context, itemID, iterationID string) error
	SetEscalationType(ctx context.Context, itemID string) error
}

// MessengerPort is the slice of the chat client the creation flow needs
type MessengerPort interface {
	// PostMessage returns the channel id and timestamp token of the new message
	PostMessage(ctx context.Context, channel, text string) (string, string, error)
	PostReply(ctx context.Context, channel, parentTimestamp, text string) error
}
