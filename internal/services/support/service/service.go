// Package service answers the support team's allow-list questions from the
// hosting provider's inventory
package service

import (
	"context"
	"strings"

	"teambot/internal/platform/logger"
	"teambot/internal/services/support/domain"
)

// workerTag marks the dedicated servers that serve production traffic;
// everything else in the account (backups, staging) stays out of the list
const workerTag = "worker"

// Service assembles the allow-list on demand; the inventory is small enough
// that nothing is cached
type Service struct {
	hosting domain.HostingPort
	chat    domain.MessengerPort
	static  domain.StaticIPs
	log     logger.Logger
}

// New wires the support flow. static carries the fixed front addresses that
// are listed ahead of the inventory.
func New(hosting domain.HostingPort, chat domain.MessengerPort, static domain.StaticIPs) *Service {
	return &Service{
		hosting: hosting,
		chat:    chat,
		static:  static,
		log:     *logger.Named("support"),
	}
}

// WorkerServers lists the worker hosts with their addresses split by family.
// A server whose lookup fails is skipped with a log line rather than sinking
// the whole answer.
func (s *Service) WorkerServers(ctx context.Context) ([]domain.Server, error) {
	names, err := s.hosting.ListServers(ctx)
	if err != nil {
		return nil, err
	}
	servers := make([]domain.Server, 0, len(names))
	for _, name := range names {
		detail, err := s.hosting.ServerDetail(ctx, name)
		if err != nil {
			logger.C(ctx).Warn().Err(err).Str("server", name).Msg("server detail lookup failed")
			continue
		}
		if !strings.Contains(strings.ToLower(detail.DisplayName), workerTag) {
			continue
		}
		blocks, err := s.hosting.ServerIPs(ctx, name)
		if err != nil {
			logger.C(ctx).Warn().Err(err).Str("server", name).Msg("server ip lookup failed")
			continue
		}
		srv := domain.Server{Name: detail.Name, DisplayName: detail.DisplayName, IPv4: []string{}, IPv6: []string{}}
		for _, b := range blocks {
			if strings.Contains(b, ":") {
				srv.IPv6 = append(srv.IPv6, b)
			} else {
				srv.IPv4 = append(srv.IPv4, b)
			}
		}
		servers = append(servers, srv)
	}
	return servers, nil
}

// IPv4List renders the static v4 addresses followed by the worker v4s,
// one per line
func (s *Service) IPv4List(ctx context.Context) (string, error) {
	servers, err := s.WorkerServers(ctx)
	if err != nil {
		return "", err
	}
	lines := append([]string{}, s.static.IPv4...)
	for _, srv := range servers {
		lines = append(lines, srv.IPv4...)
	}
	return joinLines(lines), nil
}

// IPv6List renders the static v6 addresses followed by the worker v6s
func (s *Service) IPv6List(ctx context.Context) (string, error) {
	servers, err := s.WorkerServers(ctx)
	if err != nil {
		return "", err
	}
	lines := append([]string{}, s.static.IPv6...)
	for _, srv := range servers {
		lines = append(lines, srv.IPv6...)
	}
	return joinLines(lines), nil
}

// IPListText renders both families, sectioned, as the paste-ready answer
func (s *Service) IPListText(ctx context.Context) (string, error) {
	servers, err := s.WorkerServers(ctx)
	if err != nil {
		return "", err
	}
	v4 := append([]string{}, s.static.IPv4...)
	v6 := append([]string{}, s.static.IPv6...)
	for _, srv := range servers {
		v4 = append(v4, srv.IPv4...)
		v6 = append(v6, srv.IPv6...)
	}
	var b strings.Builder
	b.WriteString("IPv4:\n")
	b.WriteString(joinLines(v4))
	b.WriteString("\nIPv6:\n")
	b.WriteString(joinLines(v6))
	return b.String(), nil
}

// SendIPList DMs the full list to the requesting user
func (s *Service) SendIPList(ctx context.Context, userID string) error {
	text, err := s.IPListText(ctx)
	if err != nil {
		return err
	}
	_, _, err = s.chat.PostMessage(ctx, userID, text)
	return err
}

func joinLines(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}
