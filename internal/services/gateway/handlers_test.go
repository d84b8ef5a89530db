package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teambot/internal/adapters/slack"
	"teambot/internal/services/gateway/dispatch"
	reldom "teambot/internal/services/releases/domain"
	supdom "teambot/internal/services/support/domain"
	taskdom "teambot/internal/services/tasks/domain"
)

var testSecrets = Secrets{Tracker: []byte("tracker-secret"), Chat: []byte("chat-secret")}

type fakeTasks struct{ reqs []taskdom.CreationRequest }

func (f *fakeTasks) Handle(_ context.Context, req taskdom.CreationRequest) error {
	f.reqs = append(f.reqs, req)
	return nil
}

type fakeItems struct{ nodes []string }

func (f *fakeItems) Reconcile(_ context.Context, nodeID string) error {
	f.nodes = append(f.nodes, nodeID)
	return nil
}

type fakeReleases struct {
	drafts    []reldom.Draft
	published []string
}

func (f *fakeReleases) DraftNote(_ context.Context, d reldom.Draft) error {
	f.drafts = append(f.drafts, d)
	return nil
}

func (f *fakeReleases) Publish(_ context.Context, noteText string) error {
	f.published = append(f.published, noteText)
	return nil
}

type fakeSupport struct{ sentTo []string }

func (f *fakeSupport) WorkerServers(context.Context) ([]supdom.Server, error) {
	return []supdom.Server{{
		Name:        "ns1",
		DisplayName: "worker-01",
		IPv4:        []string{"203.0.113.10"},
		IPv6:        []string{"2001:db8::10"},
	}}, nil
}

func (f *fakeSupport) IPv4List(context.Context) (string, error) {
	return "203.0.113.10\n", nil
}

func (f *fakeSupport) IPv6List(context.Context) (string, error) {
	return "2001:db8::10\n", nil
}

func (f *fakeSupport) IPListText(context.Context) (string, error) {
	return "IPv4:\n203.0.113.10\n\nIPv6:\n2001:db8::10\n", nil
}

func (f *fakeSupport) SendIPList(_ context.Context, userID string) error {
	f.sentTo = append(f.sentTo, userID)
	return nil
}

type fakeDeploy struct{ orders [][3]string }

func (f *fakeDeploy) Deploy(_ context.Context, app, env, ref string) error {
	f.orders = append(f.orders, [3]string{app, env, ref})
	return nil
}

type fakeModals struct {
	triggers []string
	views    []string
}

func (f *fakeModals) OpenView(_ context.Context, triggerID string, view json.RawMessage) error {
	f.triggers = append(f.triggers, triggerID)
	f.views = append(f.views, string(view))
	return nil
}

type fixture struct {
	h        *Handlers
	pool     *dispatch.Pool
	tasks    *fakeTasks
	items    *fakeItems
	releases *fakeReleases
	support  *fakeSupport
	deploy   *fakeDeploy
	modals   *fakeModals
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		pool:     dispatch.NewPool(dispatch.Options{Workers: 1, Queue: 16}),
		tasks:    &fakeTasks{},
		items:    &fakeItems{},
		releases: &fakeReleases{},
		support:  &fakeSupport{},
		deploy:   &fakeDeploy{},
		modals:   &fakeModals{},
	}
	f.pool.Start(context.Background())
	t.Cleanup(func() { _ = f.pool.Shutdown(context.Background()) })
	f.h = NewHandlers(f.tasks, f.items, f.releases, f.support, f.deploy, f.modals,
		f.pool, statusFieldID, testSecrets)
	f.h.now = func() time.Time { return time.Unix(1690000000, 0) }
	return f
}

// drain waits for every queued job to finish
func (f *fixture) drain(t *testing.T) {
	require.NoError(t, f.pool.Shutdown(context.Background()))
}

func signTracker(body []byte) string {
	mac := hmac.New(sha1.New, testSecrets.Tracker)
	mac.Write(body)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

func signedChatRequest(t *testing.T, path string, form url.Values) *http.Request {
	body := []byte(form.Encode())
	ts := strconv.FormatInt(1690000000, 10)
	mac := hmac.New(sha256.New, testSecrets.Chat)
	mac.Write([]byte("v0:" + ts + ":"))
	mac.Write(body)

	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Slack-Request-Timestamp", ts)
	r.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return r
}

func TestTrackerWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"action":"edited"}`)
	r := httptest.NewRequest(http.MethodPost, "/github/webhook", bytes.NewReader(body))
	r.Header.Set("X-Hub-Signature", "sha1=deadbeef")
	w := httptest.NewRecorder()

	f.h.TrackerWebhook(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTrackerWebhookAcksIrrelevantEvents(t *testing.T) {
	f := newFixture(t)
	// a recognized delivery kind with an action the bridge ignores
	body := []byte(`{"action":"created","projects_v2_item":{"node_id":"PVTI_9"}}`)
	r := httptest.NewRequest(http.MethodPost, "/github/webhook", bytes.NewReader(body))
	r.Header.Set("X-Hub-Signature", signTracker(body))
	w := httptest.NewRecorder()

	f.h.TrackerWebhook(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	f.drain(t)
	assert.Empty(t, f.items.nodes)
	assert.Empty(t, f.releases.drafts)
}

func TestTrackerWebhookRejectsUnknownShapes(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"action":"opened","issue":{"number":1}}`)
	r := httptest.NewRequest(http.MethodPost, "/github/webhook", bytes.NewReader(body))
	r.Header.Set("X-Hub-Signature", signTracker(body))
	w := httptest.NewRecorder()

	f.h.TrackerWebhook(w, r)
	assert.Equal(t, http.StatusInternalServerError, w.Code,
		"deliveries the gateway cannot classify must surface, not vanish")

	f.drain(t)
	assert.Empty(t, f.items.nodes)
	assert.Empty(t, f.releases.drafts)
}

func TestTrackerWebhookQueuesReconciliation(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"action":"edited","projects_v2_item":{"node_id":"PVTI_9"},
		"changes":{"field_value":{"field_type":"assignees"}}}`)
	r := httptest.NewRequest(http.MethodPost, "/github/webhook", bytes.NewReader(body))
	r.Header.Set("X-Hub-Signature", signTracker(body))
	w := httptest.NewRecorder()

	f.h.TrackerWebhook(w, r)
	assert.Equal(t, http.StatusOK, w.Code, "the ack must not wait for the work")

	f.drain(t)
	assert.Equal(t, []string{"PVTI_9"}, f.items.nodes)
}

func TestTrackerWebhookQueuesReleaseDraft(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"action":"published","release":{"tag_name":"v3.15","body":"notes"},
		"repository":{"name":"wp-rocket"}}`)
	r := httptest.NewRequest(http.MethodPost, "/github/webhook", bytes.NewReader(body))
	r.Header.Set("X-Hub-Signature", signTracker(body))
	w := httptest.NewRecorder()

	f.h.TrackerWebhook(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	f.drain(t)
	require.Len(t, f.releases.drafts, 1)
	assert.Equal(t, "wp-rocket", f.releases.drafts[0].Repo)
}

func TestInteractionViewSubmissionClearsAndQueues(t *testing.T) {
	f := newFixture(t)
	payload := `{
		"type": "view_submission",
		"user": {"id": "U_init"},
		"view": {
			"callback_id": "` + slack.CallbackCreateTask + `",
			"state": {"values": {
				"task_title": {"value": {"value": "t"}},
				"task_description": {"value": {"value": "b"}}
			}}
		}
	}`
	form := url.Values{"payload": {payload}}
	w := httptest.NewRecorder()

	f.h.ChatInteraction(w, signedChatRequest(t, "/slack/interaction", form))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response_action":"clear"}`, w.Body.String())

	f.drain(t)
	require.Len(t, f.tasks.reqs, 1)
	assert.Equal(t, taskdom.FlowGeneric, f.tasks.reqs[0].Flow)
	assert.Equal(t, "U_init", f.tasks.reqs[0].Initiator)
}

func TestInteractionEscalationSubmissionSetsFlow(t *testing.T) {
	f := newFixture(t)
	payload := `{
		"type": "view_submission",
		"user": {"id": "U_init"},
		"view": {
			"callback_id": "` + slack.CallbackEscalation + `",
			"state": {"values": {
				"task_title": {"value": {"value": "t"}},
				"task_description": {"value": {"value": "b"}}
			}}
		}
	}`
	form := url.Values{"payload": {payload}}
	w := httptest.NewRecorder()

	f.h.ChatInteraction(w, signedChatRequest(t, "/slack/interaction", form))
	assert.Equal(t, http.StatusOK, w.Code)

	f.drain(t)
	require.Len(t, f.tasks.reqs, 1)
	assert.Equal(t, taskdom.FlowEscalation, f.tasks.reqs[0].Flow)
}

func TestInteractionShortcutOpensModalBeforeAck(t *testing.T) {
	f := newFixture(t)
	payload := `{"type":"shortcut","trigger_id":"trig-1","user":{"id":"U_init"},
		"callback_id":"` + slack.CallbackGeneralShortcut + `"}`
	form := url.Values{"payload": {payload}}
	w := httptest.NewRecorder()

	f.h.ChatInteraction(w, signedChatRequest(t, "/slack/interaction", form))
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.modals.triggers, 1, "modal opening cannot be deferred past the trigger's lifetime")
	assert.Equal(t, "trig-1", f.modals.triggers[0])
}

func TestInteractionPublishButton(t *testing.T) {
	f := newFixture(t)
	payload := `{"type":"block_actions","user":{"id":"U_ops"},"channel":{"id":"C_ops"},
		"message":{"ts":"1.2"},
		"actions":[{"action_id":"` + slack.ActionPublishRelease + `","value":"WP Rocket 3.15\n- fixes"}]}`
	form := url.Values{"payload": {payload}}
	w := httptest.NewRecorder()

	f.h.ChatInteraction(w, signedChatRequest(t, "/slack/interaction", form))
	assert.Equal(t, http.StatusOK, w.Code)

	f.drain(t)
	require.Len(t, f.releases.published, 1)
	assert.Equal(t, "WP Rocket 3.15\n- fixes", f.releases.published[0],
		"the button value is the note text and is published verbatim")
}

func TestInteractionDeploySubmission(t *testing.T) {
	f := newFixture(t)
	payload := `{
		"type": "view_submission",
		"user": {"id": "U_ops"},
		"view": {
			"callback_id": "` + slack.CallbackDeploy + `",
			"state": {"values": {
				"deploy_application": {"value": {"value": "wp-rocket"}},
				"deploy_environment": {"value": {"value": "production"}},
				"deploy_ref": {"value": {"value": "v3.15.2"}}
			}}
		}
	}`
	form := url.Values{"payload": {payload}}
	w := httptest.NewRecorder()

	f.h.ChatInteraction(w, signedChatRequest(t, "/slack/interaction", form))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response_action":"clear"}`, w.Body.String())

	f.drain(t)
	require.Len(t, f.deploy.orders, 1)
	assert.Equal(t, [3]string{"wp-rocket", "production", "v3.15.2"}, f.deploy.orders[0])
	assert.Empty(t, f.tasks.reqs)
}

func TestCommandEscalationOpensModal(t *testing.T) {
	f := newFixture(t)
	form := url.Values{
		"command":    {CommandEscalation},
		"trigger_id": {"trig-2"},
		"user_id":    {"U_sup"},
	}
	w := httptest.NewRecorder()

	f.h.ChatCommand(w, signedChatRequest(t, "/slack/command", form))
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.modals.triggers, 1)
	assert.Equal(t, "trig-2", f.modals.triggers[0])
	assert.Contains(t, f.modals.views[0], slack.CallbackEscalation)
}

func TestCommandIPListQueuesDM(t *testing.T) {
	f := newFixture(t)
	form := url.Values{"command": {CommandIPList}, "user_id": {"U_sup"}}
	w := httptest.NewRecorder()

	f.h.ChatCommand(w, signedChatRequest(t, "/slack/command", form))
	assert.Equal(t, http.StatusOK, w.Code)

	f.drain(t)
	assert.Equal(t, []string{"U_sup"}, f.support.sentTo)
}

func TestCommandDeployOpensModal(t *testing.T) {
	f := newFixture(t)
	form := url.Values{
		"command":    {CommandDeploy},
		"trigger_id": {"trig-3"},
		"user_id":    {"U_ops"},
	}
	w := httptest.NewRecorder()

	f.h.ChatCommand(w, signedChatRequest(t, "/slack/command", form))
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.modals.triggers, 1)
	assert.Equal(t, "trig-3", f.modals.triggers[0])
	assert.Contains(t, f.modals.views[0], slack.CallbackDeploy)

	f.drain(t)
	assert.Empty(t, f.deploy.orders, "the command only opens the modal; the submission deploys")
}

func TestCommandUnknownIsUnknownEvent(t *testing.T) {
	f := newFixture(t)
	form := url.Values{"command": {"/unknown"}, "user_id": {"U_x"}}
	w := httptest.NewRecorder()

	f.h.ChatCommand(w, signedChatRequest(t, "/slack/command", form))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCommandRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	body := []byte("command=%2Fwprocket-ips")
	r := httptest.NewRequest(http.MethodPost, "/slack/command", bytes.NewReader(body))
	r.Header.Set("X-Slack-Request-Timestamp", "1690000000")
	r.Header.Set("X-Slack-Signature", "v0=deadbeef")
	w := httptest.NewRecorder()

	f.h.ChatCommand(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIPListEndpoints(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.h.IPListText(w, httptest.NewRequest(http.MethodGet, "/support/wprocket-ips", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "IPv4:\n203.0.113.10\n\nIPv6:\n2001:db8::10\n", w.Body.String())

	w = httptest.NewRecorder()
	f.h.IPv4List(w, httptest.NewRequest(http.MethodGet, "/support/wprocket-ips/ipv4", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "203.0.113.10\n", w.Body.String())

	w = httptest.NewRecorder()
	f.h.IPv6List(w, httptest.NewRequest(http.MethodGet, "/support/wprocket-ips/ipv6", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2001:db8::10\n", w.Body.String())

	w = httptest.NewRecorder()
	f.h.IPListJSON(w, httptest.NewRequest(http.MethodGet, "/support/wprocket-ips.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`[{"name":"ns1","display_name":"worker-01","ipv4":["203.0.113.10"],"ipv6":["2001:db8::10"]}]`,
		w.Body.String())
}
