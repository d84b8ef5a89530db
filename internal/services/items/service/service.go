// Package service reconciles edited board items with their chat threads
package service

import (
	"context"
	"fmt"

	"teambot/internal/platform/config"
	perr "teambot/internal/platform/errors"
	"teambot/internal/platform/logger"
	"teambot/internal/services/items/domain"
	taskdom "teambot/internal/services/tasks/domain"
)

// Service drives one reconciliation per webhook delivery. Nothing is cached
// between deliveries; the thread is re-located by search every time.
type Service struct {
	tracker domain.TrackerPort
	chat    domain.MessengerPort
	board   *config.BoardConfig
	log     logger.Logger
}

// New wires the reconciler
func New(tracker domain.TrackerPort, chat domain.MessengerPort, board *config.BoardConfig) *Service {
	return &Service{
		tracker: tracker,
		chat:    chat,
		board:   board,
		log:     *logger.Named("items"),
	}
}

// Reconcile brings the chat thread of the edited item back in line with the
// tracker. Items that are not escalations, and escalations without a thread,
// are skipped without error.
func (s *Service) Reconcile(ctx context.Context, nodeID string) error {
	itemType, err := s.tracker.ItemType(ctx, nodeID)
	if err != nil {
		return err
	}
	if itemType != s.board.Fields.EscalationTypeName {
		logger.C(ctx).Debug().Str("type", itemType).Msg("item is not an escalation, skipping")
		return nil
	}

	snap, err := s.tracker.ItemSnapshot(ctx, nodeID)
	if err != nil {
		return err
	}

	channel, err := s.board.ChannelFor(taskdom.FlowEscalation)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("itemId=%d in:%s from:%s", snap.DatabaseID, channel, s.board.SearchSourceTag)
	ref, err := s.chat.SearchThread(ctx, query)
	if err != nil {
		if perr.Silent(err) {
			// escalations created before the bridge existed have no thread
			logger.C(ctx).Debug().Int("database_id", snap.DatabaseID).Msg("no thread for item, skipping")
			return nil
		}
		return err
	}

	next := domain.RenderThreadText(domain.Header(ref.Text), snap)
	if next == ref.Text {
		return nil
	}
	if err := s.chat.EditMessage(ctx, ref.Channel, ref.Timestamp, next); err != nil {
		return err
	}
	if err := s.chat.PostReply(ctx, ref.Channel, ref.Timestamp, statusReply(snap)); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("reconciliation reply failed")
	}
	return nil
}

// statusReply is the human-facing change notification under the thread. It
// reuses the thread's assignee fragment verbatim, trailing separator included.
func statusReply(snap domain.Snapshot) string {
	return fmt.Sprintf("This escalation is now %s and currently assigned to: %s", snap.Status, domain.RenderAssignees(snap.Assignees))
}
