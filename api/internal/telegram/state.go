package telegram

import (
	"context"

	"quiz-bot/api/internal/session"
)

// state returns the chat's conversation. Store errors degrade to the idle state.
func (r *Router) state(ctx context.Context, chatID int64) session.Session {
	s, err := r.Sessions.Get(ctx, chatID)
	if err != nil {
		r.Log.WithError(err).Warn("session load failed", map[string]interface{}{"chat_id": chatID})
		return session.Session{}
	}
	return s
}

func (r *Router) setState(ctx context.Context, chatID int64, s session.Session) {
	if err := r.Sessions.Set(ctx, chatID, s); err != nil {
		r.Log.WithError(err).Warn("session save failed", map[string]interface{}{"chat_id": chatID, "state": string(s.State)})
	}
}

func (r *Router) clearState(ctx context.Context, chatID int64) {
	if err := r.Sessions.Clear(ctx, chatID); err != nil {
		r.Log.WithError(err).Warn("session clear failed", map[string]interface{}{"chat_id": chatID})
	}
}

// takeState claims the chat's conversation if it is in want, removing it from
// the store. Any other state is put back untouched.
func (r *Router) takeState(ctx context.Context, chatID int64, want session.State) (session.Session, bool) {
	s, err := r.Sessions.Take(ctx, chatID)
	if err != nil {
		r.Log.WithError(err).Warn("session take failed", map[string]interface{}{"chat_id": chatID})
		return session.Session{}, false
	}
	if s.State != want {
		if s.State != session.StateIdle {
			r.setState(ctx, chatID, s)
		}
		return session.Session{}, false
	}
	return s, true
}
