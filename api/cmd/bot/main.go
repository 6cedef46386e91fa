package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-bot/api/internal/access"
	"quiz-bot/api/internal/app"
	"quiz-bot/api/internal/config"
	"quiz-bot/api/internal/httpserver"
	"quiz-bot/api/internal/logger"
	"quiz-bot/api/internal/session"
	"quiz-bot/api/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.RequireBot(); err != nil {
		log.Fatal(err)
	}

	zl := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = zl.Sync() }()
	lg := logger.NewZapAdapter(zl).With(map[string]interface{}{"service": "quiz-bot"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, lg)
	if err != nil {
		fatal(lg, "open app", err)
	}
	defer a.Close()

	guard := access.NewGuard(cfg.OwnerID, a.Access)
	ids, _ := cfg.AuthorizedIDs()
	if err := guard.Seed(ctx, ids); err != nil {
		fatal(lg, "seed authorized users", err)
	}

	var sessions session.Store = session.NewMemory(session.DefaultTTL)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rs, err := session.NewRedisFromURL(ctx, cfg.RedisURL, session.DefaultTTL)
		if err != nil {
			fatal(lg, "connect redis", err)
		}
		sessions = rs
		lg.Info("sessions in redis", nil)
	}

	_ = tgbotapi.SetLogger(logger.BotLogger{L: lg})
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		fatal(lg, "telegram login", err)
	}
	bot.Debug = false
	lg.Info("telegram authorized", map[string]interface{}{"bot": bot.Self.UserName})

	r := telegram.NewRouter(bot, a.Service, guard, sessions, lg)
	r.Timeout = cfg.ExtractTimeout
	dispatch := func(upd tgbotapi.Update) { r.Dispatch(ctx, upd) }

	go a.PurgeLoop(ctx)

	opts := httpserver.Options{Health: a.Health}
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		path := "/webhook/" + shortHash(bot.Token)
		wh, err := tgbotapi.NewWebhook(strings.TrimRight(webhookURL, "/") + path)
		if err != nil {
			fatal(lg, "webhook config", err)
		}
		wh.DropPendingUpdates = true
		if _, err := bot.Request(wh); err != nil {
			fatal(lg, "set webhook", err)
		}
		opts.WebhookPath = path
		opts.Webhook = telegram.WebhookHandler(bot.HandleUpdate, dispatch, lg)
		lg.Info("webhook mode", nil)
	} else {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			lg.WithError(err).Warn("delete webhook failed", nil)
		}
		go telegram.RunPolling(ctx, bot, dispatch, lg)
		lg.Info("polling mode", nil)
	}

	if err := httpserver.Serve(ctx, "0.0.0.0:"+cfg.Port, httpserver.NewRouter(opts), lg); err != nil {
		fatal(lg, "http server", err)
	}
}

func fatal(lg logger.Logger, msg string, err error) {
	lg.WithError(err).Error(msg, nil)
	os.Exit(1)
}

// shortHash keeps the webhook path stable per token without exposing the token.
func shortHash(s string) string {
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
