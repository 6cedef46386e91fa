package telegram

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-bot/api/internal/logger"
)

// Updater is the long-polling half of *tgbotapi.BotAPI.
type Updater interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

// RetryDelayFromError picks the pause before the next poll. Telegram 429s carry
// their own delay; network timeouts get a little longer than other errors.
func RetryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		return time.Duration(tgErr.RetryAfter) * time.Second
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

// RunPolling long-polls until ctx is cancelled. Errors never stop the loop.
func RunPolling(ctx context.Context, bot Updater, handle func(tgbotapi.Update), log logger.Logger) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		if ctx.Err() != nil {
			log.Info("polling stopped", nil)
			return
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := RetryDelayFromError(err)
			if d < baseDelay {
				d = baseDelay
			}
			if d > maxDelay {
				d = maxDelay
			}
			log.WithError(err).Warn("polling error", map[string]interface{}{"retry_in": d.String()})
			wait(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			wait(ctx, 200*time.Millisecond)
		}
	}
}

func wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// WebhookHandler parses posted updates with parse (normally bot.HandleUpdate)
// and hands them to handle. Telegram only needs a quick 200.
func WebhookHandler(parse func(*http.Request) (*tgbotapi.Update, error), handle func(tgbotapi.Update), log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		upd, err := parse(req)
		if err != nil {
			log.WithError(err).Warn("bad webhook update", nil)
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		handle(*upd)
		w.WriteHeader(http.StatusOK)
	}
}
