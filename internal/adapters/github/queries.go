package github

import (
	"context"
	"strings"
	"time"

	"github.com/machinebox/graphql"

	perr "teambot/internal/platform/errors"
	itemdom "teambot/internal/services/items/domain"
)

// ResolveUserID looks up the tracker-side user id for a chat-side login.
// "" with a nil error means no such user; unknown assignees are normal input.
func (c *Client) ResolveUserID(ctx context.Context, login string) (string, error) {
	req := graphql.NewRequest(`
		query userIDFromLogin($login: String!) {
			user(login: $login) {
				id
			}
		}
	`)
	req.Var("login", login)

	var resp struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := c.run(ctx, "resolveUserID", req, &resp); err != nil {
		// unknown login is reported as a GraphQL error, not a null user;
		// anything else (auth, rate limit) must not create an unassigned task
		if perr.IsCode(err, perr.ErrorCodeDelivery) &&
			strings.Contains(strings.ToLower(err.Error()), "could not resolve") {
			c.log.Debug().Str("login", login).Msg("login has no tracker user")
			return "", nil
		}
		return "", err
	}
	return resp.User.ID, nil
}

// CurrentSprintID returns the id of the iteration whose half-open interval
// [start, start+duration) contains "now" in UTC, or "" when none does.
// An event arriving before the first sprint or after the last one is not an
// error; the caller decides whether absence matters.
func (c *Client) CurrentSprintID(ctx context.Context) (string, error) {
	req := graphql.NewRequest(`
		query GetIterations($nodeId: ID!) {
			node(id: $nodeId) {
				... on ProjectV2IterationField {
					configuration {
						duration
						iterations {
							id
							startDate
						}
					}
				}
			}
		}
	`)
	req.Var("nodeId", c.board.Fields.SprintFieldID)

	var resp struct {
		Node struct {
			Configuration struct {
				Duration   int `json:"duration"`
				Iterations []struct {
					ID        string `json:"id"`
					StartDate string `json:"startDate"`
				} `json:"iterations"`
			} `json:"configuration"`
		} `json:"node"`
	}
	if err := c.run(ctx, "currentSprintID", req, &resp); err != nil {
		return "", err
	}

	duration := resp.Node.Configuration.Duration
	if duration <= 0 {
		return "", nil
	}
	now := c.now().UTC()
	for _, it := range resp.Node.Configuration.Iterations {
		start, err := time.ParseInLocation("2006-01-02", it.StartDate, time.UTC)
		if err != nil {
			continue
		}
		end := start.AddDate(0, 0, duration)
		if !now.Before(start) && now.Before(end) {
			return it.ID, nil
		}
	}
	return "", nil
}

// ItemType fetches the rendered classification name of a project item,
// "" when the type field is unset
func (c *Client) ItemType(ctx context.Context, nodeID string) (string, error) {
	req := graphql.NewRequest(`
		query ItemType($nodeId: ID!, $field: String!) {
			node(id: $nodeId) {
				... on ProjectV2Item {
					fieldValueByName(name: $field) {
						... on ProjectV2ItemFieldSingleSelectValue {
							name
						}
					}
				}
			}
		}
	`)
	req.Var("nodeId", nodeID)
	req.Var("field", c.board.Fields.TypeFieldName)

	var resp struct {
		Node struct {
			FieldValueByName struct {
				Name string `json:"name"`
			} `json:"fieldValueByName"`
		} `json:"node"`
	}
	if err := c.run(ctx, "itemType", req, &resp); err != nil {
		return "", err
	}
	return resp.Node.FieldValueByName.Name, nil
}

// ItemSnapshot fetches status name and assignee logins for reconciliation.
// Assignees is empty, never nil, when no one is assigned.
func (c *Client) ItemSnapshot(ctx context.Context, nodeID string) (itemdom.Snapshot, error) {
	req := graphql.NewRequest(`
		query ItemSnapshot($nodeId: ID!, $statusField: String!) {
			node(id: $nodeId) {
				... on ProjectV2Item {
					databaseId
					fieldValueByName(name: $statusField) {
						... on ProjectV2ItemFieldSingleSelectValue {
							name
						}
					}
					content {
						... on DraftIssue {
							assignees(first: 50) {
								nodes {
									login
								}
							}
						}
					}
				}
			}
		}
	`)
	req.Var("nodeId", nodeID)
	req.Var("statusField", c.board.Fields.StatusFieldName)

	var resp struct {
		Node struct {
			DatabaseID       int `json:"databaseId"`
			FieldValueByName struct {
				Name string `json:"name"`
			} `json:"fieldValueByName"`
			Content struct {
				Assignees struct {
					Nodes []struct {
						Login string `json:"login"`
					} `json:"nodes"`
				} `json:"assignees"`
			} `json:"content"`
		} `json:"node"`
	}
	if err := c.run(ctx, "itemSnapshot", req, &resp); err != nil {
		return itemdom.Snapshot{}, err
	}

	snap := itemdom.Snapshot{
		Status:     resp.Node.FieldValueByName.Name,
		Assignees:  make([]string, 0, len(resp.Node.Content.Assignees.Nodes)),
		DatabaseID: resp.Node.DatabaseID,
	}
	for _, n := range resp.Node.Content.Assignees.Nodes {
		snap.Assignees = append(snap.Assignees, n.Login)
	}
	return snap, nil
}
