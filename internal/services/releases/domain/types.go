// Package domain defines the types and ports of the release note flow
package domain

import "context"

// FlowReleases keys the ops channel release announcements go to
const FlowReleases = "releases"

// Draft describes a release note to write up
type Draft struct {
	Repo    string `json:"repo" validate:"required"`
	Version string `json:"version" validate:"required"`
	Notes   string `json:"notes"`
}

// Note identifies a drafted release note page
type Note struct {
	ID  string
	URL string
}

// DocsPort is the slice of the docs workspace the flow needs
type DocsPort interface {
	CreateReleasePage(ctx context.Context, repoName, version, notes string) (Note, error)
}

// MessengerPort is the slice of the chat client the flow needs
type MessengerPort interface {
	// AnnounceRelease posts the draft announcement whose publish control
	// carries the note text, and returns the channel id and timestamp
	AnnounceRelease(ctx context.Context, channel, repoName, version, pageURL, noteText string) (string, string, error)
	PostMessage(ctx context.Context, channel, text string) (string, string, error)
}
