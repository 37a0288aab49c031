package workers

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"

	"tifo/internal/adapters/kafka"
	"tifo/pkg/errors"
	"tifo/pkg/logger"
)

// GlobalContextID names the always-on league-wide feed context.
const GlobalContextID = "global"

// MatchContextID names the refresh context for a match.
func MatchContextID(matchID string) string { return "match:" + matchID }

// ClubContextID names the refresh context for a club.
func ClubContextID(clubID string) string { return "club:" + clubID }

// statusConsumer is the part of the Kafka consumer the listener needs.
type statusConsumer interface {
	Consume(ctx context.Context, handler kafka.MessageHandler) error
}

// MatchStatusListener feeds match lifecycle signals into the refresh
// manager: kickoff boosts the match and club contexts, full time hands
// them back to the mention-rate hysteresis.
type MatchStatusListener struct {
	consumer statusConsumer
	manager  *RefreshManager
	log      *logger.Logger
}

// NewMatchStatusListener creates the listener.
func NewMatchStatusListener(consumer statusConsumer, manager *RefreshManager) *MatchStatusListener {
	return &MatchStatusListener{
		consumer: consumer,
		manager:  manager,
		log:      logger.Get().With("component", "match_status_listener"),
	}
}

// Run consumes until the context is cancelled.
func (l *MatchStatusListener) Run(ctx context.Context) error {
	return l.consumer.Consume(ctx, l.handle)
}

func (l *MatchStatusListener) handle(_ context.Context, msg kafkago.Message) error {
	var event kafka.MatchStatusEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return errors.Wrap(err, "decode match status event")
	}
	if event.MatchID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "match status event without match_id")
	}

	switch event.Status {
	case kafka.MatchStatusLive:
		l.matchLive(event)
	case kafka.MatchStatusFinished:
		l.matchFinished(event)
	default:
		l.log.Warnw("Ignoring unknown match status", "match", event.MatchID, "status", event.Status)
	}
	return nil
}

func (l *MatchStatusListener) matchLive(event kafka.MatchStatusEvent) {
	matchCtx := MatchContextID(event.MatchID)
	if err := l.manager.Activate(matchCtx); err != nil && !errors.Is(err, errors.ErrAlreadyExists) {
		l.log.Errorw("Failed to activate match context", "context", matchCtx, "error", err)
	}
	if err := l.manager.MarkLive(matchCtx, true); err != nil {
		l.log.Errorw("Failed to mark match live", "context", matchCtx, "error", err)
	}

	for _, clubID := range event.ClubIDs {
		clubCtx := ClubContextID(clubID)
		// Club loops usually already run; start one if not.
		if err := l.manager.Activate(clubCtx); err != nil && !errors.Is(err, errors.ErrAlreadyExists) {
			l.log.Errorw("Failed to activate club context", "context", clubCtx, "error", err)
			continue
		}
		if err := l.manager.MarkLive(clubCtx, true); err != nil {
			l.log.Errorw("Failed to mark club live", "context", clubCtx, "error", err)
		}
	}

	l.log.Infow("Match went live", "match", event.MatchID, "clubs", event.ClubIDs)
}

func (l *MatchStatusListener) matchFinished(event kafka.MatchStatusEvent) {
	for _, clubID := range event.ClubIDs {
		if err := l.manager.MarkLive(ClubContextID(clubID), false); err != nil && !errors.Is(err, errors.ErrNotFound) {
			l.log.Errorw("Failed to release club boost", "club", clubID, "error", err)
		}
	}

	matchCtx := MatchContextID(event.MatchID)
	if err := l.manager.Deactivate(matchCtx); err != nil && !errors.Is(err, errors.ErrNotFound) {
		l.log.Errorw("Failed to deactivate match context", "context", matchCtx, "error", err)
	}

	l.log.Infow("Match finished", "match", event.MatchID)
}
