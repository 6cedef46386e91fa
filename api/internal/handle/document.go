package handle

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"quiz-bot/api/internal/extract"
	"quiz-bot/api/internal/metrics"
	"quiz-bot/api/internal/render"
)

type FormatInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Formats lists the document variants.
func (h *Handle) Formats(w http.ResponseWriter, r *http.Request) {
	out := make([]FormatInfo, 0, len(render.AllVariants))
	for _, v := range render.AllVariants {
		out = append(out, FormatInfo{ID: string(v), Label: v.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}

// Document renders one variant and serves it as a downloadable HTML file.
// ?allow_empty=1 renders even when the test has no questions.
func (h *Handle) Document(w http.ResponseWriter, r *http.Request) {
	nid := chi.URLParam(r, "nid")
	v, err := render.ParseVariant(chi.URLParam(r, "variant"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "UNKNOWN_FORMAT", Error: err.Error()})
		return
	}
	allowEmpty, _ := strconv.ParseBool(r.URL.Query().Get("allow_empty"))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.svc.Extract(ctx, nid, []render.Variant{v}, extract.Options{AllowEmpty: allowEmpty})
	if err != nil {
		h.writeError(w, err)
		return
	}
	doc := res.Documents[0]
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("X-Request-Id", res.RequestID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
	metrics.DocumentsSent.WithLabelValues("api", string(v)).Inc()
}
