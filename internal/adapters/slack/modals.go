package slack

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Callback ids route interactions back to the flow that created the surface
const (
	CallbackCreateTask      = "ttl_create_github_task_modal_submit"
	CallbackEscalation      = "ttl_dev_team_escalation_modal_submit"
	CallbackGeneralShortcut = "ttl_create_github_task_general_shortcut"
	CallbackDeploy          = "ttl_deploy_manager_modal_submit"

	// ActionPublishRelease is the button on release announcements
	ActionPublishRelease = "publish-release-note"
)

// taskModalBase is the shared shape of the task creation modals. Flow
// specific fields are stamped in with sjson before the view is opened.
const taskModalBase = `{
	"type": "modal",
	"callback_id": "",
	"private_metadata": "",
	"title": {"type": "plain_text", "text": ""},
	"submit": {"type": "plain_text", "text": "Submit"},
	"close": {"type": "plain_text", "text": "Cancel"},
	"blocks": [
		{
			"type": "input",
			"block_id": "task_title",
			"label": {"type": "plain_text", "text": "Title"},
			"element": {"type": "plain_text_input", "action_id": "value"}
		},
		{
			"type": "input",
			"block_id": "task_description",
			"label": {"type": "plain_text", "text": "Description"},
			"element": {"type": "plain_text_input", "action_id": "value", "multiline": true}
		},
		{
			"type": "input",
			"block_id": "task_assignee",
			"optional": true,
			"label": {"type": "plain_text", "text": "Assignee (tracker login)"},
			"element": {"type": "plain_text_input", "action_id": "value"}
		},
		{
			"type": "input",
			"block_id": "task_immediately",
			"optional": true,
			"label": {"type": "plain_text", "text": "Scheduling"},
			"element": {
				"type": "checkboxes",
				"action_id": "value",
				"options": [
					{
						"text": {"type": "plain_text", "text": "Handle in the current sprint"},
						"value": "handle_immediately"
					}
				]
			}
		}
	]
}`

// CreateTaskView builds the generic task creation modal. metadata travels
// opaquely through the chat platform and comes back on submission.
func CreateTaskView(metadata string) json.RawMessage {
	v := taskModalBase
	v, _ = sjson.Set(v, "callback_id", CallbackCreateTask)
	v, _ = sjson.Set(v, "title.text", "Create a task")
	v, _ = sjson.Set(v, "private_metadata", metadata)
	return json.RawMessage(v)
}

// EscalationView builds the escalation modal. Same input surface as the
// generic modal; the callback id is what makes the submission an escalation.
func EscalationView(metadata string) json.RawMessage {
	v := taskModalBase
	v, _ = sjson.Set(v, "callback_id", CallbackEscalation)
	v, _ = sjson.Set(v, "title.text", "Escalate to the dev team")
	v, _ = sjson.Set(v, "private_metadata", metadata)
	return json.RawMessage(v)
}

// deployModalBase is the deploy manager's input surface
const deployModalBase = `{
	"type": "modal",
	"callback_id": "",
	"private_metadata": "",
	"title": {"type": "plain_text", "text": "Deploy manager"},
	"submit": {"type": "plain_text", "text": "Deploy"},
	"close": {"type": "plain_text", "text": "Cancel"},
	"blocks": [
		{
			"type": "input",
			"block_id": "deploy_application",
			"label": {"type": "plain_text", "text": "Application"},
			"element": {"type": "plain_text_input", "action_id": "value"}
		},
		{
			"type": "input",
			"block_id": "deploy_environment",
			"label": {"type": "plain_text", "text": "Environment"},
			"element": {"type": "plain_text_input", "action_id": "value"}
		},
		{
			"type": "input",
			"block_id": "deploy_ref",
			"label": {"type": "plain_text", "text": "Ref (tag, branch or commit)"},
			"element": {"type": "plain_text_input", "action_id": "value"}
		}
	]
}`

// DeployView builds the deploy manager modal
func DeployView(metadata string) json.RawMessage {
	v := deployModalBase
	v, _ = sjson.Set(v, "callback_id", CallbackDeploy)
	v, _ = sjson.Set(v, "private_metadata", metadata)
	return json.RawMessage(v)
}

// ReleaseAnnouncementBlocks renders the ops announcement for a drafted
// release note. The publish button carries the note text itself so the click
// handler can post it without another docs round trip.
func ReleaseAnnouncementBlocks(repoName, version, pageURL, noteText string) json.RawMessage {
	base := `{"blocks":[
		{"type": "section", "text": {"type": "mrkdwn", "text": ""}},
		{"type": "actions", "elements": [
			{
				"type": "button",
				"style": "primary",
				"text": {"type": "plain_text", "text": "Publish"},
				"value": ""
			}
		]}
	]}`
	text := "A release note draft for *" + repoName + " " + version + "* is ready: <" + pageURL + "|open the draft>"
	v, _ := sjson.Set(base, "blocks.0.text.text", text)
	v, _ = sjson.Set(v, "blocks.1.elements.0.action_id", ActionPublishRelease)
	v, _ = sjson.Set(v, "blocks.1.elements.0.value", noteText)
	// callers want the bare array, not the wrapping object
	return json.RawMessage(gjson.Get(v, "blocks").Raw)
}

// AnnounceRelease posts the drafted release note announcement with its
// publish control into channel
func (c *Client) AnnounceRelease(ctx context.Context, channel, repoName, version, pageURL, noteText string) (string, string, error) {
	fallback := "Release note draft ready for " + repoName + " " + version
	return c.PostMessageBlocks(ctx, channel, fallback,
		ReleaseAnnouncementBlocks(repoName, version, pageURL, noteText))
}
