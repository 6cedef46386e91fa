package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-bot/api/internal/access"
	"quiz-bot/api/internal/extract"
	"quiz-bot/api/internal/logger"
	"quiz-bot/api/internal/quiz"
	"quiz-bot/api/internal/render"
	"quiz-bot/api/internal/session"
)

// Bot is the subset of *tgbotapi.BotAPI the router talks to.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Extractor interface {
	Extract(ctx context.Context, nid string, vs []render.Variant, opt extract.Options) (*extract.Result, error)
	Info(ctx context.Context, nid string) (*quiz.Metadata, error)
}

type Router struct {
	Bot      Bot
	Svc      Extractor
	Guard    *access.Guard // nil disables access control
	Sessions session.Store
	Timeout  time.Duration
	Loc      *time.Location
	Log      logger.Logger

	sem chan struct{}
}

func NewRouter(bot Bot, svc Extractor, guard *access.Guard, sessions session.Store, log logger.Logger) *Router {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if sessions == nil {
		sessions = session.NewMemory(session.DefaultTTL)
	}
	return &Router{
		Bot:      bot,
		Svc:      svc,
		Guard:    guard,
		Sessions: sessions,
		Timeout:  3 * time.Minute,
		Loc:      time.Local,
		Log:      log,
		sem:      make(chan struct{}, 8),
	}
}

// Dispatch handles upd on its own goroutine. At most cap(sem) updates run at once;
// further calls block until a slot frees up.
func (r *Router) Dispatch(ctx context.Context, upd tgbotapi.Update) {
	r.sem <- struct{}{}
	go func() {
		defer func() { <-r.sem }()
		defer func() {
			if p := recover(); p != nil {
				r.Log.Error("update handler panicked", map[string]interface{}{
					"update_id": upd.UpdateID,
					"panic":     fmt.Sprint(p),
				})
			}
		}()
		r.HandleUpdate(ctx, upd)
	}()
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID
	uid := userID(msg.From)

	if !r.allowed(ctx, uid) {
		r.denyAccess(cid, uid)
		return
	}

	if msg.IsCommand() {
		r.HandleCommand(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	switch r.state(ctx, cid).State {
	case session.StateAwaitNID:
		r.onNID(ctx, cid, text)
	case session.StateAwaitInfoNID:
		r.clearState(ctx, cid)
		r.sendInfo(ctx, cid, text)
	case session.StateChooseFormat:
		r.send(cid, pickFormatText)
	default:
		r.send(cid, useStartText)
	}
}

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	arg := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		r.clearState(ctx, cid)
		r.sendMarkdown(cid, welcomeText, mainMenuKeyboard())
	case "extract":
		if arg != "" {
			r.onNID(ctx, cid, arg)
			return
		}
		r.setState(ctx, cid, session.Session{State: session.StateAwaitNID})
		r.sendMarkdown(cid, askNIDText, nil)
	case "info":
		if arg != "" {
			r.clearState(ctx, cid)
			r.sendInfo(ctx, cid, arg)
			return
		}
		r.setState(ctx, cid, session.Session{State: session.StateAwaitInfoNID})
		r.sendMarkdown(cid, askInfoNIDText, nil)
	case "help":
		r.sendMarkdown(cid, helpText, backKeyboard())
	case "cancel":
		r.clearState(ctx, cid)
		r.send(cid, cancelledText)
	case "allow", "deny", "users":
		r.handleAccessCommand(ctx, msg)
	default:
		r.send(cid, "Unknown command. Use /help.")
	}
}

func (r *Router) allowed(ctx context.Context, uid int64) bool {
	if r.Guard == nil {
		return true
	}
	ok, err := r.Guard.Allowed(ctx, uid)
	if err != nil {
		r.Log.WithError(err).Error("access check failed", map[string]interface{}{"user_id": uid})
		return false
	}
	return ok
}

func (r *Router) denyAccess(chatID, uid int64) {
	r.Log.Warn("unauthorized access attempt", map[string]interface{}{"user_id": uid, "chat_id": chatID})
	r.sendMarkdown(chatID, accessDeniedText(uid), nil)
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.WithError(err).Warn("send message failed", map[string]interface{}{"chat_id": chatID})
	}
}

func (r *Router) sendMarkdown(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.WithError(err).Warn("send message failed", map[string]interface{}{"chat_id": chatID})
	}
}

func (r *Router) edit(chatID int64, msgID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	e := tgbotapi.NewEditMessageText(chatID, msgID, text)
	e.ParseMode = tgbotapi.ModeMarkdown
	e.ReplyMarkup = kb
	if _, err := r.Bot.Send(e); err != nil {
		r.Log.WithError(err).Warn("edit message failed", map[string]interface{}{"chat_id": chatID})
	}
}

func userID(u *tgbotapi.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
