package github

import (
	"context"

	"github.com/google/uuid"
	"github.com/machinebox/graphql"

	perr "teambot/internal/platform/errors"
	taskdom "teambot/internal/services/tasks/domain"
)

// CreateTask creates a draft item on the board. Title and body are checked
// before any network call. A nil CreatedTask with a nil error signals a
// malformed tracker response: the caller must stop mutating but the event
// stays handled.
func (c *Client) CreateTask(ctx context.Context, fields taskdom.CreationFields) (*taskdom.CreatedTask, error) {
	if fields.Title == "" {
		return nil, perr.WithField(perr.Validationf("title is required"), "title")
	}
	if fields.Body == "" {
		return nil, perr.WithField(perr.Validationf("body is required"), "body")
	}

	task := map[string]any{
		"projectId":        c.board.Project.ID,
		"title":            fields.Title,
		"body":             fields.Body,
		"clientMutationId": uuid.NewString(),
	}
	// the key must be absent, not empty, when there is nothing to assign
	if len(fields.AssigneeIDs) > 0 {
		task["assigneeIds"] = fields.AssigneeIDs
	}

	req := graphql.NewRequest(`
		mutation CreateProjectTask($task: AddProjectV2DraftIssueInput!) {
			addProjectV2DraftIssue(input: $task) {
				projectItem {
					id
					databaseId
					project {
						number
					}
				}
			}
		}
	`)
	req.Var("task", task)

	var resp struct {
		AddProjectV2DraftIssue struct {
			ProjectItem struct {
				ID         string `json:"id"`
				DatabaseID int    `json:"databaseId"`
				Project    struct {
					Number int `json:"number"`
				} `json:"project"`
			} `json:"projectItem"`
		} `json:"addProjectV2DraftIssue"`
	}
	if err := c.run(ctx, "createTask", req, &resp); err != nil {
		if perr.IsCode(err, perr.ErrorCodeDelivery) {
			c.log.Error().Err(err).Msg("tracker rejected the creation mutation")
			return nil, nil
		}
		return nil, err
	}

	item := resp.AddProjectV2DraftIssue.ProjectItem
	if item.ID == "" {
		c.log.Error().Msg("tracker creation response missing project item")
		return nil, nil
	}
	return &taskdom.CreatedTask{
		ItemID:        item.ID,
		DatabaseID:    item.DatabaseID,
		ProjectNumber: item.Project.Number,
	}, nil
}

// SetFieldValue is the generic single-field mutation all well-known setters
// bind onto
func (c *Client) SetFieldValue(ctx context.Context, itemID, fieldID string, value map[string]any) error {
	req := graphql.NewRequest(`
		mutation UpdateItemField($fieldMutation: UpdateProjectV2ItemFieldValueInput!) {
			updateProjectV2ItemFieldValue(input: $fieldMutation) {
				clientMutationId
			}
		}
	`)
	req.Var("fieldMutation", map[string]any{
		"clientMutationId": uuid.NewString(),
		"projectId":        c.board.Project.ID,
		"itemId":           itemID,
		"fieldId":          fieldID,
		"value":            value,
	})

	var resp struct {
		UpdateProjectV2ItemFieldValue struct {
			ClientMutationID string `json:"clientMutationId"`
		} `json:"updateProjectV2ItemFieldValue"`
	}
	return c.run(ctx, "setFieldValue", req, &resp)
}

// SetInitialStatus moves a fresh item into the configured initial column
func (c *Client) SetInitialStatus(ctx context.Context, itemID string) error {
	return c.SetFieldValue(ctx, itemID, c.board.Fields.StatusFieldID,
		map[string]any{"singleSelectOptionId": c.board.Fields.InitialStatusOptionID})
}

// SetSprint assigns an item to the given iteration
func (c *Client) SetSprint(ctx context.Context, itemID, iterationID string) error {
	return c.SetFieldValue(ctx, itemID, c.board.Fields.SprintFieldID,
		map[string]any{"iterationId": iterationID})
}

// SetEscalationType marks an item with the escalation classification
func (c *Client) SetEscalationType(ctx context.Context, itemID string) error {
	return c.SetFieldValue(ctx, itemID, c.board.Fields.TypeFieldID,
		map[string]any{"singleSelectOptionId": c.board.Fields.EscalationTypeOptionID})
}
