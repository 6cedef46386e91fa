package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-bot/api/internal/render"
	"quiz-bot/api/internal/session"
)

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	mid := cb.Message.MessageID
	uid := userID(cb.From)

	if !r.allowed(ctx, uid) {
		r.denyAccess(cid, uid)
		return
	}

	switch cb.Data {
	case cbExtract:
		r.setState(ctx, cid, session.Session{State: session.StateAwaitNID})
		r.edit(cid, mid, askNIDText, nil)
	case cbInfo:
		r.setState(ctx, cid, session.Session{State: session.StateAwaitInfoNID})
		r.edit(cid, mid, askInfoNIDText, nil)
	case cbHelp:
		r.edit(cid, mid, helpText, backKeyboard())
	case cbBack:
		r.clearState(ctx, cid)
		r.edit(cid, mid, welcomeText, mainMenuKeyboard())
	default:
		vs, err := render.ParseVariants(cb.Data)
		if err != nil {
			r.Log.Debug("unknown callback", map[string]interface{}{"chat_id": cid, "data": cb.Data})
			return
		}
		r.onFormat(ctx, cid, mid, vs)
	}
}
