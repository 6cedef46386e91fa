package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"quiz-bot/api/internal/quiz"
	"quiz-bot/api/internal/sanitize"
)

type InfoResponse struct {
	NID         string   `json:"nid"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Opens       Schedule `json:"opens"`
	Closes      Schedule `json:"closes"`
	Results     Schedule `json:"results"`
}

type Schedule struct {
	Unix      int64  `json:"unix"`
	Formatted string `json:"formatted"`
}

func schedule(sec int64) Schedule {
	return Schedule{Unix: sec, Formatted: quiz.FormatEpoch(sec, time.UTC)}
}

func (h *Handle) Info(w http.ResponseWriter, r *http.Request) {
	nid := chi.URLParam(r, "nid")

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	m, err := h.svc.Info(ctx, nid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, InfoResponse{
		NID:         nid,
		Title:       m.TitleOr(nid),
		Description: sanitize.PlainText(m.Description),
		Opens:       schedule(m.QuizOpen),
		Closes:      schedule(m.QuizClose),
		Results:     schedule(m.ShowResults),
	})
}
