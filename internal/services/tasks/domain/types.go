// Package domain defines the types and ports of the task creation flow
package domain

// Flow names select which extra steps the lifecycle applies
const (
	// FlowGeneric is a plain task created from the generic shortcut/modal
	FlowGeneric = "create_github_task"
	// FlowEscalation is a support escalation that also gets a chat thread
	FlowEscalation = "dev-team-escalation"
)

// NoAssignee is the sentinel meaning "omit assignees entirely"
const NoAssignee = "no-assignee"

// CreationRequest is the immutable input to task creation, built from a
// submitted form. Title and Body are the only mandatory fields.
type CreationRequest struct {
	Title             string `json:"title" validate:"required"`
	Body              string `json:"body" validate:"required"`
	Assignee          string `json:"assignee"`
	HandleImmediately bool   `json:"handle_immediately"`
	Initiator         string `json:"initiator"`
	Flow              string `json:"flow"`
}

// CreationFields is what actually goes into the tracker creation mutation
// after assignee resolution. AssigneeIDs empty means the key is omitted from
// the mutation payload altogether.
type CreationFields struct {
	Title       string
	Body        string
	AssigneeIDs []string
}

// CreatedTask is returned once by the tracker on creation. ItemID drives all
// subsequent mutations; DatabaseID is embedded in deep links and in the
// correlation token the reconciler searches for.
type CreatedTask struct {
	ItemID        string
	DatabaseID    int
	ProjectNumber int
}
