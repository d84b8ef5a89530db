package gateway

import (
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"strings"
	"time"

	perr "teambot/internal/platform/errors"
	"teambot/internal/platform/logger"
	phttp "teambot/internal/platform/net/http"
	"teambot/internal/services/gateway/dispatch"

	"teambot/internal/adapters/slack"
	reldom "teambot/internal/services/releases/domain"
	supdom "teambot/internal/services/support/domain"
	taskdom "teambot/internal/services/tasks/domain"
)

// maxBodyBytes caps webhook bodies; deliveries are small JSON documents
const maxBodyBytes = 1 << 20

// Slash commands the gateway answers
const (
	CommandEscalation = "/dev-team-escalation"
	CommandIPList     = "/wprocket-ips"
	CommandDeploy     = "/deploy-manager"
)

// TaskRunner drives one task creation
type TaskRunner interface {
	Handle(ctx context.Context, req taskdom.CreationRequest) error
}

// ItemReconciler drives one item reconciliation
type ItemReconciler interface {
	Reconcile(ctx context.Context, nodeID string) error
}

// ReleaseDesk drafts and publishes release notes
type ReleaseDesk interface {
	DraftNote(ctx context.Context, d reldom.Draft) error
	Publish(ctx context.Context, noteText string) error
}

// SupportDesk answers allow-list questions
type SupportDesk interface {
	WorkerServers(ctx context.Context) ([]supdom.Server, error)
	IPv4List(ctx context.Context) (string, error)
	IPv6List(ctx context.Context) (string, error)
	IPListText(ctx context.Context) (string, error)
	SendIPList(ctx context.Context, userID string) error
}

// Deployer forwards deployment orders
type Deployer interface {
	Deploy(ctx context.Context, app, env, ref string) error
}

// ModalOpener opens chat modals; the trigger expires in seconds so this is
// the one chat call made before the ack
type ModalOpener interface {
	OpenView(ctx context.Context, triggerID string, view json.RawMessage) error
}

// Secrets holds the per-source webhook signing secrets
type Secrets struct {
	Tracker []byte
	Chat    []byte
}

// Handlers is the webhook surface. Everything slow goes through the pool;
// the handlers themselves only authenticate, classify, and ack.
type Handlers struct {
	tasks    TaskRunner
	items    ItemReconciler
	releases ReleaseDesk
	support  SupportDesk
	deploy   Deployer
	modals   ModalOpener
	pool     *dispatch.Pool

	statusFieldID string
	secrets       Secrets
	now           func() time.Time
	log           logger.Logger
}

// NewHandlers wires the gateway
func NewHandlers(
	tasks TaskRunner,
	items ItemReconciler,
	releases ReleaseDesk,
	support SupportDesk,
	deploy Deployer,
	modals ModalOpener,
	pool *dispatch.Pool,
	statusFieldID string,
	secrets Secrets,
) *Handlers {
	return &Handlers{
		tasks:         tasks,
		items:         items,
		releases:      releases,
		support:       support,
		deploy:        deploy,
		modals:        modals,
		pool:          pool,
		statusFieldID: statusFieldID,
		secrets:       secrets,
		now:           time.Now,
		log:           *logger.Named("gateway"),
	}
}

func readBody(w stdhttp.ResponseWriter, r *stdhttp.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		phttp.Error(w, perr.Wrap(err, perr.ErrorCodeTransport, "request body unreadable"))
		return nil, false
	}
	return body, true
}

// TrackerWebhook handles board deliveries: item edits and releases
func (h *Handlers) TrackerWebhook(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := VerifyTrackerSignature(h.secrets.Tracker, body, r.Header.Get("X-Hub-Signature")); err != nil {
		phttp.Error(w, err)
		return
	}

	ev, err := ClassifyTrackerEvent(body, h.statusFieldID)
	if err != nil {
		phttp.Error(w, err)
		return
	}
	if ev == nil {
		phttp.Ack(w)
		return
	}

	var job dispatch.Job
	switch {
	case ev.ItemEdit != nil:
		nodeID := ev.ItemEdit.NodeID
		job = dispatch.Job{Name: "reconcile-item", Run: func(ctx context.Context) error {
			return h.items.Reconcile(ctx, nodeID)
		}}
	case ev.Release != nil:
		draft := *ev.Release
		job = dispatch.Job{Name: "draft-release-note", Run: func(ctx context.Context) error {
			return h.releases.DraftNote(ctx, draft)
		}}
	}
	if err := h.pool.Submit(job); err != nil {
		phttp.Error(w, err)
		return
	}
	phttp.Ack(w)
}

// ChatInteraction handles interactivity payloads: shortcuts, modal
// submissions, and button clicks
func (h *Handlers) ChatInteraction(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := h.verifyChat(r, body); err != nil {
		phttp.Error(w, err)
		return
	}
	form, err := parseForm(body)
	if err != nil {
		phttp.Error(w, err)
		return
	}
	in, err := ParseInteraction(form.Get("payload"))
	if err != nil {
		phttp.Error(w, err)
		return
	}

	switch in.Type {
	case "shortcut", "message_action":
		h.openTaskModal(r.Context(), w, in)
	case "view_submission":
		h.submitView(w, in)
	case "block_actions":
		h.blockAction(w, in)
	}
}

// openTaskModal answers a shortcut with the creation modal. Must run before
// the ack; the trigger id dies after a few seconds.
func (h *Handlers) openTaskModal(ctx context.Context, w stdhttp.ResponseWriter, in Interaction) {
	if in.CallbackID != slack.CallbackGeneralShortcut {
		phttp.Error(w, perr.UnknownEventf("unhandled shortcut %q", in.CallbackID))
		return
	}
	if err := h.modals.OpenView(ctx, in.TriggerID, slack.CreateTaskView(in.UserID)); err != nil {
		phttp.Error(w, err)
		return
	}
	phttp.Ack(w)
}

// submitView turns a modal submission into a queued creation and clears the
// modal stack in the ack body
func (h *Handlers) submitView(w stdhttp.ResponseWriter, in Interaction) {
	var job dispatch.Job
	switch in.CallbackID {
	case slack.CallbackCreateTask, slack.CallbackEscalation:
		req := in.Request
		req.Flow = taskdom.FlowGeneric
		if in.CallbackID == slack.CallbackEscalation {
			req.Flow = taskdom.FlowEscalation
		}
		job = dispatch.Job{Name: "create-task", Run: func(ctx context.Context) error {
			return h.tasks.Handle(ctx, req)
		}}
	case slack.CallbackDeploy:
		d := in.Deploy
		job = dispatch.Job{Name: "deploy", Run: func(ctx context.Context) error {
			return h.deploy.Deploy(ctx, d.App, d.Env, d.Ref)
		}}
	default:
		phttp.Error(w, perr.UnknownEventf("unhandled view callback %q", in.CallbackID))
		return
	}
	if err := h.pool.Submit(job); err != nil {
		phttp.Error(w, err)
		return
	}
	phttp.JSON(w, stdhttp.StatusOK, map[string]string{"response_action": "clear"})
}

func (h *Handlers) blockAction(w stdhttp.ResponseWriter, in Interaction) {
	if in.ActionID != slack.ActionPublishRelease {
		phttp.Error(w, perr.UnknownEventf("unhandled action %q", in.ActionID))
		return
	}
	noteText := in.ActionValue
	job := dispatch.Job{Name: "publish-release-note", Run: func(ctx context.Context) error {
		return h.releases.Publish(ctx, noteText)
	}}
	if err := h.pool.Submit(job); err != nil {
		phttp.Error(w, err)
		return
	}
	phttp.Ack(w)
}

// ChatCommand handles slash command invocations
func (h *Handlers) ChatCommand(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if err := h.verifyChat(r, body); err != nil {
		phttp.Error(w, err)
		return
	}
	form, err := parseForm(body)
	if err != nil {
		phttp.Error(w, err)
		return
	}
	cmd := Command{
		Name:      form.Get("command"),
		Text:      strings.TrimSpace(form.Get("text")),
		UserID:    form.Get("user_id"),
		TriggerID: form.Get("trigger_id"),
	}

	switch cmd.Name {
	case CommandEscalation:
		if err := h.modals.OpenView(r.Context(), cmd.TriggerID, slack.EscalationView(cmd.UserID)); err != nil {
			phttp.Error(w, err)
			return
		}
		phttp.Text(w, stdhttp.StatusOK, "")
	case CommandIPList:
		userID := cmd.UserID
		job := dispatch.Job{Name: "send-ip-list", Run: func(ctx context.Context) error {
			return h.support.SendIPList(ctx, userID)
		}}
		if err := h.pool.Submit(job); err != nil {
			phttp.Error(w, err)
			return
		}
		phttp.Text(w, stdhttp.StatusOK, "On it, the list lands in your DMs.")
	case CommandDeploy:
		if err := h.modals.OpenView(r.Context(), cmd.TriggerID, slack.DeployView(cmd.UserID)); err != nil {
			phttp.Error(w, err)
			return
		}
		phttp.Text(w, stdhttp.StatusOK, "")
	default:
		phttp.Error(w, perr.UnknownEventf("unhandled command %q", cmd.Name))
	}
}

// IPListText serves the allow-list as paste-ready plain text
func (h *Handlers) IPListText(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	text, err := h.support.IPListText(r.Context())
	if err != nil {
		phttp.Error(w, err)
		return
	}
	phttp.Text(w, stdhttp.StatusOK, text)
}

// IPListJSON serves the worker inventory as structured data
func (h *Handlers) IPListJSON(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	servers, err := h.support.WorkerServers(r.Context())
	if err != nil {
		phttp.Error(w, err)
		return
	}
	phttp.JSON(w, stdhttp.StatusOK, servers)
}

// IPv4List serves only the v4 half of the allow-list
func (h *Handlers) IPv4List(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	text, err := h.support.IPv4List(r.Context())
	if err != nil {
		phttp.Error(w, err)
		return
	}
	phttp.Text(w, stdhttp.StatusOK, text)
}

// IPv6List serves only the v6 half of the allow-list
func (h *Handlers) IPv6List(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	text, err := h.support.IPv6List(r.Context())
	if err != nil {
		phttp.Error(w, err)
		return
	}
	phttp.Text(w, stdhttp.StatusOK, text)
}

func (h *Handlers) verifyChat(r *stdhttp.Request, body []byte) error {
	return VerifyChatSignature(
		h.secrets.Chat,
		r.Header.Get("X-Slack-Request-Timestamp"),
		body,
		r.Header.Get("X-Slack-Signature"),
		h.now(),
	)
}
