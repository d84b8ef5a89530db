package notion

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	perr "teambot/internal/platform/errors"
	reldom "teambot/internal/services/releases/domain"
)

// the client must satisfy the release flow's docs port as-is
var _ reldom.DocsPort = (*Client)(nil)

func TestCreateReleasePage(t *testing.T) {
	var seenPath, seenBody string
	var seenHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seenPath = r.URL.Path
		seenBody = string(raw)
		seenHeader = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"page-1","url":"https://notion.example/page-1"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Options{APIRoot: srv.URL, Token: "tok", ParentID: "db-1"})
	note, err := c.CreateReleasePage(context.Background(), "WP Rocket", "3.15.2", "- fixed cache purge")
	require.NoError(t, err)
	assert.Equal(t, reldom.Note{ID: "page-1", URL: "https://notion.example/page-1"}, note)

	assert.Equal(t, "/v1/pages", seenPath)
	assert.Equal(t, "Bearer tok", seenHeader.Get("Authorization"))
	assert.Equal(t, apiVersion, seenHeader.Get("Notion-Version"))
	assert.Equal(t, "db-1", gjson.Get(seenBody, "parent.database_id").String())
	assert.Equal(t, "WP Rocket 3.15.2",
		gjson.Get(seenBody, "properties.Name.title.0.text.content").String())
	assert.Equal(t, "- fixed cache purge",
		gjson.Get(seenBody, "children.0.paragraph.rich_text.0.text.content").String())
}

func TestCreateReleasePageMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Options{APIRoot: srv.URL, Token: "tok", ParentID: "db-1"})
	_, err := c.CreateReleasePage(context.Background(), "WP Rocket", "3.15.2", "")
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeDelivery))
}
