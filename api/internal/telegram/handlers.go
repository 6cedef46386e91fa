package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-bot/api/internal/access"
	"quiz-bot/api/internal/apperr"
	"quiz-bot/api/internal/extract"
	"quiz-bot/api/internal/metrics"
	"quiz-bot/api/internal/quiz"
	"quiz-bot/api/internal/render"
	"quiz-bot/api/internal/session"
)

// onNID validates the identifier and offers the format keyboard.
// Invalid input keeps the chat waiting for an NID.
func (r *Router) onNID(ctx context.Context, chatID int64, text string) {
	nid, err := extract.ValidateNID(text)
	if err != nil {
		r.setState(ctx, chatID, session.Session{State: session.StateAwaitNID})
		r.send(chatID, invalidNIDText)
		return
	}
	r.setState(ctx, chatID, session.Session{State: session.StateChooseFormat, NID: nid})
	r.sendMarkdown(chatID, chooseFormatText(nid), formatKeyboard())
}

func (r *Router) onFormat(ctx context.Context, chatID int64, msgID int, vs []render.Variant) {
	sess, ok := r.takeState(ctx, chatID, session.StateChooseFormat)
	if !ok || sess.NID == "" {
		r.edit(chatID, msgID, expiredText, nil)
		return
	}

	r.edit(chatID, msgID, fmt.Sprintf("⏳ Extracting NID `%s` (%d file(s))...", sess.NID, len(vs)), nil)
	r.extractAndSend(ctx, chatID, sess.NID, vs)
}

func (r *Router) extractAndSend(ctx context.Context, chatID int64, nid string, vs []render.Variant) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	res, err := r.Svc.Extract(ctx, nid, vs, extract.Options{ChatID: chatID})
	if err != nil {
		r.Log.WithError(err).Warn("extraction failed", map[string]interface{}{"chat_id": chatID, "nid": nid})
		r.send(chatID, userError(nid, err))
		return
	}

	sent := 0
	for _, d := range res.Documents {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: d.Filename, Bytes: d.Content})
		doc.Caption = caption(d.Variant)
		if _, err := r.Bot.Send(doc); err != nil {
			r.Log.WithError(err).Warn("send document failed", map[string]interface{}{
				"chat_id":  chatID,
				"filename": d.Filename,
			})
			r.send(chatID, "❌ Could not send "+d.Filename+". Please try again.")
			continue
		}
		sent++
		metrics.DocumentsSent.WithLabelValues("telegram", string(d.Variant)).Inc()
	}
	if sent == 0 {
		return
	}
	r.send(chatID, fmt.Sprintf("✅ Done: %d question(s) from %q.\n\n🚀 Use /start for another test.", len(res.Questions), res.Title))
}

func (r *Router) sendInfo(ctx context.Context, chatID int64, text string) {
	nid, err := extract.ValidateNID(text)
	if err != nil {
		r.send(chatID, invalidNIDText)
		return
	}

	loading, err := r.Bot.Send(tgbotapi.NewMessage(chatID, "🔄 Fetching quiz information... ⏳"))
	if err != nil {
		r.Log.WithError(err).Warn("send message failed", map[string]interface{}{"chat_id": chatID})
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	m, err := r.Svc.Info(ctx, nid)
	var body string
	if err != nil {
		r.Log.WithError(err).Warn("info failed", map[string]interface{}{"chat_id": chatID, "nid": nid})
		body = userError(nid, err)
	} else {
		if m == nil {
			m = &quiz.Metadata{}
		}
		body = formatInfo(nid, m, r.Loc)
	}

	if loading.MessageID != 0 {
		e := tgbotapi.NewEditMessageText(chatID, loading.MessageID, body)
		e.ParseMode = tgbotapi.ModeHTML
		if _, err := r.Bot.Send(e); err == nil {
			return
		}
	}
	msg := tgbotapi.NewMessage(chatID, body)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.WithError(err).Warn("send message failed", map[string]interface{}{"chat_id": chatID})
	}
}

// handleAccessCommand serves the owner-only /allow, /deny and /users.
func (r *Router) handleAccessCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	actor := userID(msg.From)
	if r.Guard == nil {
		r.send(cid, "Access control is disabled.")
		return
	}

	if msg.Command() == "users" {
		ids, err := r.Guard.List(ctx, actor)
		if err != nil {
			r.send(cid, accessError(err))
			return
		}
		r.send(cid, formatUsers(r.Guard.Owner, ids))
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil || id <= 0 {
		r.send(cid, fmt.Sprintf("Usage: /%s <user id>", msg.Command()))
		return
	}

	switch msg.Command() {
	case "allow":
		if err := r.Guard.Grant(ctx, actor, id); err != nil {
			r.send(cid, accessError(err))
			return
		}
		r.Log.Info("user granted", map[string]interface{}{"user_id": id, "by": actor})
		r.send(cid, fmt.Sprintf("✅ User %d can now use the bot.", id))
	case "deny":
		removed, err := r.Guard.Revoke(ctx, actor, id)
		if err != nil {
			r.send(cid, accessError(err))
			return
		}
		if !removed {
			r.send(cid, fmt.Sprintf("User %d was not on the list.", id))
			return
		}
		r.Log.Info("user revoked", map[string]interface{}{"user_id": id, "by": actor})
		r.send(cid, fmt.Sprintf("🗑 User %d can no longer use the bot.", id))
	}
}

func formatUsers(owner int64, ids []int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👑 Owner: %d\n", owner)
	if len(ids) == 0 {
		b.WriteString("👥 No authorized users.")
		return b.String()
	}
	fmt.Fprintf(&b, "👥 Authorized users (%d):", len(ids))
	for _, id := range ids {
		fmt.Fprintf(&b, "\n• %d", id)
	}
	return b.String()
}

func accessError(err error) string {
	if errors.Is(err, access.ErrNotOwner) {
		return notOwnerText
	}
	return "❌ " + err.Error()
}

// userError phrases a pipeline failure for the chat.
func userError(nid string, err error) string {
	switch apperr.CodeOf(err) {
	case apperr.CodeInvalidIdentifier:
		return invalidNIDText
	case apperr.CodeNoQuestions:
		return fmt.Sprintf("❌ No questions found for NID %s. Check the NID and try again.", nid)
	case apperr.CodeNotAvailable, apperr.CodeRetryableTransport:
		return "⚠️ The test server did not answer after several attempts. Please try again later. 🔄"
	case apperr.CodeTerminalParse:
		return "⚠️ The test server returned data that could not be read."
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "⏱ Extraction took too long. Please try again."
	}
	return "❌ Extraction failed. Please try again later."
}
