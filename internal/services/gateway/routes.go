package gateway

import (
	"net/url"

	perr "teambot/internal/platform/errors"
	phttp "teambot/internal/platform/net/http"
	"teambot/internal/platform/net/middleware"
)

// parseForm decodes an application/x-www-form-urlencoded body
func parseForm(body []byte) (url.Values, error) {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeValidation, "form body unparsable")
	}
	return form, nil
}

// Mount attaches the webhook surface to the router
func Mount(r phttp.Router, h *Handlers) {
	r.Post("/github/webhook", h.TrackerWebhook)
	r.Route("/slack", func(r phttp.Router) {
		r.Post("/interaction", h.ChatInteraction)
		r.Post("/command", h.ChatCommand)
	})
	// support answers are read from internal dashboards, so they get CORS and
	// must never be cached stale
	r.Route("/support", func(r phttp.Router) {
		r.Use(
			middleware.NoCache(),
			middleware.CORS(middleware.CORSOptions{AllowedOrigins: []string{"*"}}),
		)
		r.Get("/wprocket-ips", h.IPListText)
		r.Get("/wprocket-ips.json", h.IPListJSON)
		r.Get("/wprocket-ips/ipv4", h.IPv4List)
		r.Get("/wprocket-ips/ipv6", h.IPv6List)
	})
}
