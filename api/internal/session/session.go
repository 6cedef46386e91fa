// Package session keeps the per-chat conversation state of the bot.
package session

import (
	"context"
	"sync"
	"time"
)

type State string

const (
	StateIdle         State = ""
	StateAwaitNID     State = "await_nid"
	StateChooseFormat State = "choose_format"
	StateAwaitInfoNID State = "await_info_nid"
)

type Session struct {
	State     State     `json:"state"`
	NID       string    `json:"nid,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is safe for concurrent use. Get returns a zero Session for unknown chats.
// Take returns the session and removes it in one step, so of two concurrent
// callers at most one sees a non-zero Session.
type Store interface {
	Get(ctx context.Context, chatID int64) (Session, error)
	Set(ctx context.Context, chatID int64, s Session) error
	Clear(ctx context.Context, chatID int64) error
	Take(ctx context.Context, chatID int64) (Session, error)
}

// DefaultTTL bounds how long an unfinished conversation is remembered.
const DefaultTTL = 30 * time.Minute

type Memory struct {
	TTL time.Duration
	Now func() time.Time

	m sync.Map // chatID -> Session
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{TTL: ttl, Now: time.Now}
}

func (s *Memory) Get(_ context.Context, chatID int64) (Session, error) {
	v, ok := s.m.Load(chatID)
	if !ok {
		return Session{}, nil
	}
	sess := v.(Session)
	if s.Now().Sub(sess.UpdatedAt) > s.TTL {
		s.m.Delete(chatID)
		return Session{}, nil
	}
	return sess, nil
}

func (s *Memory) Set(_ context.Context, chatID int64, sess Session) error {
	sess.UpdatedAt = s.Now()
	s.m.Store(chatID, sess)
	return nil
}

func (s *Memory) Take(_ context.Context, chatID int64) (Session, error) {
	v, ok := s.m.LoadAndDelete(chatID)
	if !ok {
		return Session{}, nil
	}
	sess := v.(Session)
	if s.Now().Sub(sess.UpdatedAt) > s.TTL {
		return Session{}, nil
	}
	return sess, nil
}

func (s *Memory) Clear(_ context.Context, chatID int64) error {
	s.m.Delete(chatID)
	return nil
}
