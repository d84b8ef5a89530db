// Package service runs the task creation lifecycle: validate, resolve,
// create, then the flow-dependent follow-up mutations and chat posts
package service

import (
	"context"
	"fmt"

	"teambot/internal/platform/config"
	perr "teambot/internal/platform/errors"
	"teambot/internal/platform/logger"
	"teambot/internal/platform/validate"
	"teambot/internal/services/tasks/domain"
)

// Service orchestrates one creation flow per call; it keeps no state between
// calls
type Service struct {
	tracker domain.TrackerPort
	chat    domain.MessengerPort
	board   *config.BoardConfig
	log     logger.Logger
}

// New wires the orchestrator
func New(tracker domain.TrackerPort, chat domain.MessengerPort, board *config.BoardConfig) *Service {
	return &Service{
		tracker: tracker,
		chat:    chat,
		board:   board,
		log:     *logger.Named("tasks"),
	}
}

// Handle drives a creation request to completion. The caller has already
// acked the originating event; errors here are logged by the dispatcher, not
// surfaced to the submitter.
func (s *Service) Handle(ctx context.Context, req domain.CreationRequest) error {
	if err := validate.Struct(&req); err != nil {
		return err
	}

	fields := domain.CreationFields{Title: req.Title, Body: req.Body}
	if id, err := s.resolveAssignee(ctx, req.Assignee); err != nil {
		return err
	} else if id != "" {
		fields.AssigneeIDs = []string{id}
	}

	created, err := s.tracker.CreateTask(ctx, fields)
	if err != nil {
		return err
	}
	if created == nil {
		// the tracker answered with an unusable shape; the item may or may not
		// exist, so no follow-up mutation is safe
		logger.C(ctx).Error().Str("flow", req.Flow).Str("title", req.Title).
			Msg("task creation yielded no item, halting the flow")
		return nil
	}

	if err := s.tracker.SetInitialStatus(ctx, created.ItemID); err != nil {
		return err
	}

	if req.HandleImmediately {
		if err := s.scheduleNow(ctx, created.ItemID); err != nil {
			return err
		}
	}

	if req.Flow == domain.FlowEscalation {
		if err := s.escalate(ctx, req, created); err != nil {
			return err
		}
	}

	s.notifyInitiator(ctx, req, created)
	return nil
}

// resolveAssignee maps the submitted assignee to a tracker user id, or ""
// when the task should go out unassigned
func (s *Service) resolveAssignee(ctx context.Context, assignee string) (string, error) {
	if assignee == "" || assignee == domain.NoAssignee {
		return "", nil
	}
	id, err := s.tracker.ResolveUserID(ctx, assignee)
	if err != nil {
		return "", err
	}
	if id == "" {
		logger.C(ctx).Warn().Str("assignee", assignee).
			Msg("assignee has no tracker user, creating unassigned")
	}
	return id, nil
}

// scheduleNow pins the item to the running sprint. No sprint covering today
// is a configuration gap worth failing loudly on.
func (s *Service) scheduleNow(ctx context.Context, itemID string) error {
	sprintID, err := s.tracker.CurrentSprintID(ctx)
	if err != nil {
		return err
	}
	if sprintID == "" {
		return perr.Preconditionf("no sprint covers the current date")
	}
	return s.tracker.SetSprint(ctx, itemID, sprintID)
}

// escalate applies the escalation extras: the type field plus the chat
// thread the reconciler will keep in sync
func (s *Service) escalate(ctx context.Context, req domain.CreationRequest, created *domain.CreatedTask) error {
	if err := s.tracker.SetEscalationType(ctx, created.ItemID); err != nil {
		return err
	}
	channel, err := s.board.ChannelFor(domain.FlowEscalation)
	if err != nil {
		return err
	}

	// the deep link carries the itemId token the thread search keys on; the
	// reconciler rewrites everything after this first line
	header := fmt.Sprintf("<%s|%s>", s.board.ItemURL(created.DatabaseID), req.Title)
	postedChannel, ts, err := s.chat.PostMessage(ctx, channel, header)
	if err != nil {
		return err
	}
	if err := s.chat.PostReply(ctx, postedChannel, ts, req.Body); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("escalation detail reply failed")
	}
	return nil
}

// notifyInitiator confirms creation over DM; best effort
func (s *Service) notifyInitiator(ctx context.Context, req domain.CreationRequest, created *domain.CreatedTask) {
	if req.Initiator == "" {
		return
	}
	text := fmt.Sprintf("Your task *%s* was created: %s", req.Title, s.board.ItemURL(created.DatabaseID))
	if _, _, err := s.chat.PostMessage(ctx, req.Initiator, text); err != nil {
		logger.C(ctx).Warn().Err(err).Str("initiator", req.Initiator).
			Msg("initiator confirmation failed")
	}
}
