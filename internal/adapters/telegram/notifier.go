package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"tifo/internal/domain/post"
	"tifo/pkg/errors"
	"tifo/pkg/logger"
)

// Notifier sends operator alerts to the configured Telegram admins.
// It is outbound only; the bot never polls for updates.
type Notifier struct {
	api      *tgbotapi.BotAPI
	adminIDs []int64
	pacer    *rate.Limiter
	log      *logger.Logger
}

// NewNotifier creates a Telegram notifier. Returns ErrInvalidInput when
// the token is empty; callers fall back to a nil notifier and log only.
func NewNotifier(token string, adminIDs []int64) (*Notifier, error) {
	if token == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "telegram bot token is required")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "create telegram bot")
	}

	return &Notifier{
		api:      api,
		adminIDs: adminIDs,
		// Telegram allows ~30 msg/sec; alerts are rare, stay well under.
		pacer: rate.NewLimiter(rate.Limit(5), 10),
		log:   logger.Get().With("component", "telegram_notifier"),
	}, nil
}

// NotifyAuthFailure alerts the admins that a platform rejected our
// credentials and its adapter was disabled.
func (n *Notifier) NotifyAuthFailure(ctx context.Context, platform post.Platform, cause error) {
	text := fmt.Sprintf(
		"🚨 *Ingestion auth failure*\n\nPlatform: `%s`\nAdapter disabled until credentials are refreshed.\n\nCause: `%v`",
		platform, cause,
	)
	n.broadcast(ctx, text)
}

// NotifyPipelineStall alerts the admins that a refresh context keeps
// failing its scheduled ticks.
func (n *Notifier) NotifyPipelineStall(ctx context.Context, contextID string, consecutiveFailures int, cause error) {
	text := fmt.Sprintf(
		"⚠️ *Pipeline stall*\n\nContext: `%s`\nConsecutive failed ticks: %d\n\nLast error: `%v`",
		contextID, consecutiveFailures, cause,
	)
	n.broadcast(ctx, text)
}

func (n *Notifier) broadcast(ctx context.Context, text string) {
	for _, adminID := range n.adminIDs {
		if err := n.pacer.Wait(ctx); err != nil {
			return
		}

		msg := tgbotapi.NewMessage(adminID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown

		if _, err := n.api.Send(msg); err != nil {
			n.log.Errorf("Failed to send telegram alert to %d: %v", adminID, err)
		}
	}
}
