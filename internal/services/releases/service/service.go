// Package service drafts release notes and publishes them on demand
package service

import (
	"context"

	"teambot/internal/platform/config"
	"teambot/internal/platform/logger"
	"teambot/internal/platform/validate"
	"teambot/internal/services/releases/domain"
)

// Service turns release events into docs pages and ops announcements
type Service struct {
	docs  domain.DocsPort
	chat  domain.MessengerPort
	board *config.BoardConfig
	log   logger.Logger
}

// New wires the release note flow
func New(docs domain.DocsPort, chat domain.MessengerPort, board *config.BoardConfig) *Service {
	return &Service{
		docs:  docs,
		chat:  chat,
		board: board,
		log:   *logger.Named("releases"),
	}
}

// DraftNote writes a release note draft and announces it to the ops channel
func (s *Service) DraftNote(ctx context.Context, d domain.Draft) error {
	if err := validate.Struct(&d); err != nil {
		return err
	}
	name := s.readableName(d.Repo)

	note, err := s.docs.CreateReleasePage(ctx, name, d.Version, d.Notes)
	if err != nil {
		return err
	}
	channel, err := s.board.ChannelFor(domain.FlowReleases)
	if err != nil {
		return err
	}
	if _, _, err := s.chat.AnnounceRelease(ctx, channel, name, d.Version, note.URL, d.Notes); err != nil {
		return err
	}
	logger.C(ctx).Info().Str("repo", d.Repo).Str("version", d.Version).Msg("release note drafted")
	return nil
}

// Publish posts the note text carried by the publish control to the releases
// channel
func (s *Service) Publish(ctx context.Context, noteText string) error {
	channel, err := s.board.ChannelFor(domain.FlowReleases)
	if err != nil {
		return err
	}
	_, _, err = s.chat.PostMessage(ctx, channel, noteText)
	return err
}

// readableName prefers the operator-maintained product name over the raw
// repository name
func (s *Service) readableName(repo string) string {
	if name, ok := s.board.RepoReadableNames[repo]; ok && name != "" {
		return name
	}
	return repo
}
