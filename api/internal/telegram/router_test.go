package telegram

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-bot/api/internal/access"
	"quiz-bot/api/internal/apperr"
	"quiz-bot/api/internal/extract"
	"quiz-bot/api/internal/logger"
	"quiz-bot/api/internal/quiz"
	"quiz-bot/api/internal/render"
	"quiz-bot/api/internal/session"
)

const (
	ownerID = int64(100)
	chatID  = int64(555)
)

type fakeBot struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
	next int
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, c)
	b.next++
	return tgbotapi.Message{MessageID: b.next}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (b *fakeBot) last() string {
	t := b.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

func (b *fakeBot) documents() []tgbotapi.DocumentConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []tgbotapi.DocumentConfig
	for _, c := range b.sent {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

type memRepo struct {
	mu  sync.Mutex
	ids map[int64]bool
}

func newMemRepo(ids ...int64) *memRepo {
	r := &memRepo{ids: map[int64]bool{}}
	for _, id := range ids {
		r.ids[id] = true
	}
	return r
}

func (r *memRepo) Add(_ context.Context, userID, _ int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[userID] = true
	return nil
}

func (r *memRepo) Remove(_ context.Context, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ok := r.ids[userID]
	delete(r.ids, userID)
	return ok, nil
}

func (r *memRepo) List(context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int64
	for id := range r.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *memRepo) Contains(_ context.Context, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ids[userID], nil
}

type fakeSvc struct {
	err error

	mu       sync.Mutex
	calls    int
	variants []render.Variant
	opt      extract.Options
}

func (f *fakeSvc) Extract(_ context.Context, nid string, vs []render.Variant, opt extract.Options) (*extract.Result, error) {
	f.mu.Lock()
	f.calls++
	f.variants, f.opt = vs, opt
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	qs := []quiz.Question{{ID: "1", Body: "<p>Q</p>", Alternatives: []quiz.Alternative{{Answer: "a"}, {Answer: "b", Score: "1", IsCorrect: true}}}}
	docs, err := render.RenderAll(vs, render.Input{NID: nid, Title: "Mock Test", Questions: qs})
	if err != nil {
		return nil, err
	}
	return &extract.Result{NID: nid, Title: "Mock Test", Questions: qs, Documents: docs}, nil
}

func (f *fakeSvc) Info(_ context.Context, nid string) (*quiz.Metadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &quiz.Metadata{Title: "Mock <Test>", Description: "Physics: Optics Chemistry: Bonds", QuizOpen: 1700000000}, nil
}

func newTestRouter(t *testing.T, svc *fakeSvc, users ...int64) (*Router, *fakeBot, *memRepo) {
	bot := &fakeBot{}
	repo := newMemRepo(users...)
	r := NewRouter(bot, svc, access.NewGuard(ownerID, repo), session.NewMemory(session.DefaultTTL), logger.NewTestLogger(t))
	return r, bot, repo
}

func command(from int64, text string) tgbotapi.Update {
	n := len(text)
	for i, c := range text {
		if c == ' ' {
			n = i
			break
		}
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: from},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}},
	}}
}

func textMsg(from int64, s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: s,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: from},
	}}
}

func callback(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 42, Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func TestRouter_AccessDenied(t *testing.T) {
	r, bot, _ := newTestRouter(t, &fakeSvc{})
	r.HandleUpdate(context.Background(), command(7, "/start"))

	assert.Contains(t, bot.last(), "Access Denied")
	assert.Contains(t, bot.last(), "`7`")

	r.HandleUpdate(context.Background(), callback(7, cbExtract))
	assert.Contains(t, bot.last(), "Access Denied")
}

func TestRouter_StartShowsMenu(t *testing.T) {
	r, bot, _ := newTestRouter(t, &fakeSvc{}, 7)
	r.HandleUpdate(context.Background(), command(7, "/start"))

	require.Len(t, bot.sent, 1)
	msg := bot.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, welcomeText, msg.Text)
	kb := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, cbExtract, *kb.InlineKeyboard[0][0].CallbackData)
}

func TestRouter_ExtractFlow(t *testing.T) {
	svc := &fakeSvc{}
	r, bot, _ := newTestRouter(t, svc, 7)
	ctx := context.Background()

	r.HandleUpdate(ctx, command(7, "/extract"))
	assert.Equal(t, askNIDText, bot.last())

	r.HandleUpdate(ctx, textMsg(7, "12ab"))
	assert.Equal(t, invalidNIDText, bot.last())

	r.HandleUpdate(ctx, textMsg(7, " 4342866055 "))
	assert.Equal(t, chooseFormatText("4342866055"), bot.last())

	r.HandleUpdate(ctx, textMsg(7, "hello"))
	assert.Equal(t, pickFormatText, bot.last())

	r.HandleUpdate(ctx, callback(7, string(render.QuestionsAnswers)))
	docs := bot.documents()
	require.Len(t, docs, 1)
	assert.Equal(t, caption(render.QuestionsAnswers), docs[0].Caption)
	f := docs[0].File.(tgbotapi.FileBytes)
	assert.Equal(t, "Mock Test_Questions_with_Answers_4342866055.html", f.Name)
	assert.Contains(t, string(f.Bytes), "Mock Test")
	assert.Equal(t, chatID, svc.opt.ChatID)
	assert.Contains(t, bot.last(), "Done: 1 question(s)")

	// the selection is consumed
	r.HandleUpdate(ctx, callback(7, string(render.QuestionsAnswers)))
	assert.Equal(t, expiredText, bot.last())
	assert.Len(t, bot.documents(), 1)
}

func TestRouter_DoubleTapOnFormatExtractsOnce(t *testing.T) {
	svc := &fakeSvc{}
	r, bot, _ := newTestRouter(t, svc, 7)
	ctx := context.Background()

	r.HandleUpdate(ctx, command(7, "/extract 99"))

	const taps = 8
	var wg sync.WaitGroup
	for i := 0; i < taps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.HandleUpdate(ctx, callback(7, string(render.QuestionsOnly)))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, svc.calls)
	assert.Len(t, bot.documents(), 1)
	expired := 0
	for _, s := range bot.texts() {
		if s == expiredText {
			expired++
		}
	}
	assert.Equal(t, taps-1, expired)
}

func TestRouter_FormatOutsideChooseStateKeepsConversation(t *testing.T) {
	svc := &fakeSvc{}
	r, bot, _ := newTestRouter(t, svc, 7)
	ctx := context.Background()

	r.HandleUpdate(ctx, command(7, "/extract"))
	r.HandleUpdate(ctx, callback(7, string(render.QuestionsOnly)))
	assert.Equal(t, expiredText, bot.last())
	assert.Zero(t, svc.calls)

	r.HandleUpdate(ctx, textMsg(7, "99"))
	assert.Equal(t, chooseFormatText("99"), bot.last())
}

func TestRouter_ExtractWithArgumentAndAllFormats(t *testing.T) {
	svc := &fakeSvc{}
	r, bot, _ := newTestRouter(t, svc, 7)
	ctx := context.Background()

	r.HandleUpdate(ctx, command(7, "/extract 99"))
	assert.Equal(t, chooseFormatText("99"), bot.last())

	r.HandleUpdate(ctx, callback(7, render.AllFormats))
	assert.Equal(t, render.AllVariants, svc.variants)
	assert.Len(t, bot.documents(), len(render.AllVariants))
}

func TestRouter_ExtractFailure(t *testing.T) {
	svc := &fakeSvc{err: apperr.NoQuestions("99")}
	r, bot, _ := newTestRouter(t, svc, 7)
	ctx := context.Background()

	r.HandleUpdate(ctx, command(7, "/extract 99"))
	r.HandleUpdate(ctx, callback(7, string(render.QuestionsOnly)))
	assert.Empty(t, bot.documents())
	assert.Contains(t, bot.last(), "No questions found for NID 99")
}

func TestRouter_Cancel(t *testing.T) {
	r, bot, _ := newTestRouter(t, &fakeSvc{}, 7)
	ctx := context.Background()

	r.HandleUpdate(ctx, command(7, "/extract"))
	r.HandleUpdate(ctx, command(7, "/cancel"))
	assert.Equal(t, cancelledText, bot.last())

	r.HandleUpdate(ctx, textMsg(7, "123"))
	assert.Equal(t, useStartText, bot.last())
}

func TestRouter_Info(t *testing.T) {
	r, bot, _ := newTestRouter(t, &fakeSvc{}, 7)
	r.Loc = nil
	ctx := context.Background()

	r.HandleUpdate(ctx, command(7, "/info 4342866055"))
	require.Len(t, bot.sent, 2)
	edit := bot.sent[1].(tgbotapi.EditMessageTextConfig)
	assert.Equal(t, 1, edit.MessageID)
	assert.Equal(t, tgbotapi.ModeHTML, edit.ParseMode)
	assert.Contains(t, edit.Text, "Mock &lt;Test&gt;")
	assert.Contains(t, edit.Text, "<b>Physics:</b> Optics\n\n<b>Chemistry:</b> Bonds")
	assert.Contains(t, edit.Text, "14 Nov 2023, 10:13 PM")
	assert.Contains(t, edit.Text, "<b>Closes:</b> Not set")
}

func TestRouter_InfoViaMenu(t *testing.T) {
	r, bot, _ := newTestRouter(t, &fakeSvc{}, 7)
	ctx := context.Background()

	r.HandleUpdate(ctx, callback(7, cbInfo))
	assert.Equal(t, askInfoNIDText, bot.last())

	r.HandleUpdate(ctx, textMsg(7, "x"))
	assert.Equal(t, invalidNIDText, bot.last())

	// the info prompt is one-shot
	r.HandleUpdate(ctx, textMsg(7, "5"))
	assert.Equal(t, useStartText, bot.last())
}

func TestRouter_AccessCommands(t *testing.T) {
	r, bot, repo := newTestRouter(t, &fakeSvc{}, 7)
	ctx := context.Background()

	r.HandleUpdate(ctx, command(7, "/allow 8"))
	assert.Equal(t, notOwnerText, bot.last())

	r.HandleUpdate(ctx, command(ownerID, "/allow 8"))
	assert.Contains(t, bot.last(), "User 8 can now use the bot")
	ok, _ := repo.Contains(ctx, 8)
	assert.True(t, ok)

	r.HandleUpdate(ctx, command(ownerID, "/allow abc"))
	assert.Equal(t, "Usage: /allow <user id>", bot.last())

	r.HandleUpdate(ctx, command(ownerID, "/users"))
	assert.Equal(t, "👑 Owner: 100\n👥 Authorized users (2):\n• 7\n• 8", bot.last())

	r.HandleUpdate(ctx, command(ownerID, "/deny 8"))
	assert.Contains(t, bot.last(), "User 8 can no longer use the bot")
	r.HandleUpdate(ctx, command(ownerID, "/deny 8"))
	assert.Equal(t, "User 8 was not on the list.", bot.last())
}

func TestUserError(t *testing.T) {
	assert.Equal(t, invalidNIDText, userError("x", apperr.InvalidIdentifier("x")))
	assert.Contains(t, userError("1", apperr.NotAvailable("fetch questions", 3, errors.New("503"))), "several attempts")
	assert.Contains(t, userError("1", apperr.TerminalParse("fetch questions", errors.New("eof"))), "could not be read")
	assert.Contains(t, userError("1", context.DeadlineExceeded), "too long")
	assert.Contains(t, userError("1", errors.New("boom")), "Extraction failed")
}

func TestFormatDescription(t *testing.T) {
	got := formatDescription("<p>Test 12 Physics: Units &amp; Vectors Chemistry : Mole concept</p><p>Botany: Cell</p>")
	assert.Equal(t, "Test 12\n\n<b>Physics:</b> Units &amp; Vectors\n\n<b>Chemistry:</b> Mole concept\n\n<b>Botany:</b> Cell", got)

	assert.Equal(t, "<b>Zoology:</b> Animal kingdom", formatDescription("zoology: Animal kingdom"))
	assert.Equal(t, "N/A", formatDescription(""))
}

func TestFormatKeyboard(t *testing.T) {
	kb := formatKeyboard()
	var data []string
	for _, row := range kb.InlineKeyboard {
		assert.LessOrEqual(t, len(row), 2)
		for _, b := range row {
			data = append(data, *b.CallbackData)
		}
	}
	want := []string{}
	for _, v := range render.AllVariants {
		want = append(want, string(v))
	}
	want = append(want, render.AllFormats)
	assert.Equal(t, want, data)
}
