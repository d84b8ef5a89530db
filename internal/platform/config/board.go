package config

import (
	"encoding/json"
	"fmt"
	"os"

	perr "teambot/internal/platform/errors"
	"teambot/internal/platform/validate"
)

// BoardConfig is the static mapping of tracker field ids/values and chat
// channels per flow. The core never hardcodes these; they are operator-owned
// and loaded once at startup from a JSON file.
type BoardConfig struct {
	// Project identifies the tracker board all items live on
	Project struct {
		ID     string `json:"id" validate:"required"`
		Number int    `json:"number" validate:"required"`
		Org    string `json:"org" validate:"required"`
	} `json:"project"`

	// Fields binds well-known field ids and option values
	Fields struct {
		StatusFieldID string `json:"statusFieldId" validate:"required"`
		// StatusFieldName/TypeFieldName are the rendered field names used in
		// snapshot queries (fieldValueByName)
		StatusFieldName        string `json:"statusFieldName" validate:"required"`
		TypeFieldName          string `json:"typeFieldName" validate:"required"`
		InitialStatusOptionID  string `json:"initialStatusOptionId" validate:"required"`
		SprintFieldID          string `json:"sprintFieldId" validate:"required"`
		TypeFieldID            string `json:"typeFieldId" validate:"required"`
		EscalationTypeOptionID string `json:"escalationTypeOptionId" validate:"required"`
		// EscalationTypeName is the rendered name the type gate matches on
		EscalationTypeName string `json:"escalationTypeName" validate:"required"`
	} `json:"fields"`

	// Channels maps a flow name to the chat channel it posts to
	Channels map[string]string `json:"channels" validate:"required,min=1"`

	// SearchSourceTag is the fixed author tag embedded in thread search queries
	SearchSourceTag string `json:"searchSourceTag" validate:"required"`

	// RepoReadableNames maps repository names to human-readable product names
	RepoReadableNames map[string]string `json:"repoReadableNames"`

	// Support holds the static allow-list addresses that precede the worker
	// inventory in IP list answers
	Support struct {
		StaticIPv4 []string `json:"staticIpv4"`
		StaticIPv6 []string `json:"staticIpv6"`
	} `json:"support"`
}

// ChannelFor returns the channel configured for a flow
func (b *BoardConfig) ChannelFor(flow string) (string, error) {
	ch, ok := b.Channels[flow]
	if !ok || ch == "" {
		return "", perr.UnknownEventf("no channel configured for flow %q", flow)
	}
	return ch, nil
}

// ItemURL builds the human-facing deep link for a board item
func (b *BoardConfig) ItemURL(databaseID int) string {
	return fmt.Sprintf(
		"https://github.com/orgs/%s/projects/%d/?pane=issue&itemId=%d",
		b.Project.Org, b.Project.Number, databaseID,
	)
}

// LoadBoardConfig reads and validates the board mapping from path
func LoadBoardConfig(path string) (*BoardConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodePrecondition, "board config unreadable")
	}
	var b BoardConfig
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodePrecondition, "board config malformed")
	}
	if err := validate.Struct(&b); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodePrecondition, "board config incomplete")
	}
	return &b, nil
}
