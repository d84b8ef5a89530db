package gateway

import (
	"strings"

	"github.com/tidwall/gjson"

	"teambot/internal/adapters/slack"
	perr "teambot/internal/platform/errors"
	reldom "teambot/internal/services/releases/domain"
	taskdom "teambot/internal/services/tasks/domain"
)

// TrackerEvent is a board webhook delivery reduced to what the pipeline acts
// on. Exactly one of the pointers is set.
type TrackerEvent struct {
	// ItemEdit asks for a reconciliation of the edited item
	ItemEdit *ItemEdit
	// Release asks for a release note draft
	Release *reldom.Draft
}

// ItemEdit carries the reconciliation target
type ItemEdit struct {
	NodeID string
}

// ClassifyTrackerEvent filters a raw webhook body down to the events the
// bridge reacts to. (nil, nil) means a recognized delivery kind the bridge
// deliberately ignores (wrong action, irrelevant field); a delivery whose
// top-level shape is not recognized at all is an UnknownEvent error.
func ClassifyTrackerEvent(body []byte, statusFieldID string) (*TrackerEvent, error) {
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, perr.UnknownEventf("tracker delivery is not a JSON object")
	}
	action := doc.Get("action").String()

	if rel := doc.Get("release"); rel.Exists() {
		if action != "published" {
			return nil, nil
		}
		return &TrackerEvent{Release: &reldom.Draft{
			Repo:    doc.Get("repository.name").String(),
			Version: rel.Get("tag_name").String(),
			Notes:   rel.Get("body").String(),
		}}, nil
	}

	item := doc.Get("projects_v2_item")
	if !item.Exists() {
		return nil, perr.UnknownEventf("unrecognized tracker delivery shape")
	}
	if action != "edited" {
		return nil, nil
	}
	nodeID := item.Get("node_id").String()
	if nodeID == "" {
		return nil, perr.UnknownEventf("item edit without a node id")
	}
	change := doc.Get("changes.field_value")
	relevant := change.Get("field_type").String() == "assignees" ||
		change.Get("field_node_id").String() == statusFieldID
	if !relevant {
		return nil, nil
	}
	return &TrackerEvent{ItemEdit: &ItemEdit{NodeID: nodeID}}, nil
}

// Interaction is a chat interactivity payload reduced to the fields the
// handlers consume
type Interaction struct {
	Type       string
	CallbackID string
	TriggerID  string
	UserID     string

	// view_submission only; Deploy is set instead of Request for the deploy
	// manager modal
	Request taskdom.CreationRequest
	Deploy  DeployRequest

	// block_actions only
	ActionID    string
	ActionValue string
	Channel     string
	MessageTS   string
}

// ParseInteraction decodes the JSON carried in the form's payload field
func ParseInteraction(payload string) (Interaction, error) {
	doc := gjson.Parse(payload)
	if !doc.IsObject() {
		return Interaction{}, perr.UnknownEventf("interaction payload is not a JSON object")
	}
	in := Interaction{
		Type:      doc.Get("type").String(),
		TriggerID: doc.Get("trigger_id").String(),
		UserID:    doc.Get("user.id").String(),
	}
	switch in.Type {
	case "shortcut", "message_action":
		in.CallbackID = doc.Get("callback_id").String()
	case "view_submission":
		in.CallbackID = doc.Get("view.callback_id").String()
		if in.CallbackID == slack.CallbackDeploy {
			in.Deploy = deployRequestFromView(doc)
		} else {
			in.Request = creationRequestFromView(doc, in.UserID)
		}
	case "block_actions":
		action := doc.Get("actions.0")
		in.ActionID = action.Get("action_id").String()
		in.ActionValue = action.Get("value").String()
		in.Channel = doc.Get("channel.id").String()
		in.MessageTS = doc.Get("message.ts").String()
	default:
		return Interaction{}, perr.UnknownEventf("unhandled interaction type %q", in.Type)
	}
	return in, nil
}

// creationRequestFromView lifts the modal's state values into a request.
// Block and action ids are fixed by the view builders.
func creationRequestFromView(doc gjson.Result, userID string) taskdom.CreationRequest {
	state := doc.Get("view.state.values")
	assignee := strings.TrimSpace(state.Get("task_assignee.value.value").String())
	if assignee == "" {
		assignee = taskdom.NoAssignee
	}
	return taskdom.CreationRequest{
		Title:             strings.TrimSpace(state.Get("task_title.value.value").String()),
		Body:              state.Get("task_description.value.value").String(),
		Assignee:          assignee,
		HandleImmediately: state.Get("task_immediately.value.selected_options.#").Int() > 0,
		Initiator:         userID,
	}
}

// DeployRequest is the deploy manager modal's submission
type DeployRequest struct {
	App string `json:"app"`
	Env string `json:"env"`
	Ref string `json:"ref"`
}

// deployRequestFromView lifts the deploy modal's state values
func deployRequestFromView(doc gjson.Result) DeployRequest {
	state := doc.Get("view.state.values")
	return DeployRequest{
		App: strings.TrimSpace(state.Get("deploy_application.value.value").String()),
		Env: strings.TrimSpace(state.Get("deploy_environment.value.value").String()),
		Ref: strings.TrimSpace(state.Get("deploy_ref.value.value").String()),
	}
}

// Command is a parsed slash command invocation
type Command struct {
	Name      string
	Text      string
	UserID    string
	TriggerID string
}
