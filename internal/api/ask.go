package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// maxQuestionBytes bounds the request body to reject runaway inputs before
// they reach the embedding model.
const maxQuestionBytes = 16 * 1024

type askRequest struct {
	Question string `json:"question"`
}

type askHandler struct {
	generator Answerer
	logger    *slog.Logger
}

// ask runs the pipeline for one question and returns the full response
// envelope: answer, sources, and whether web search contributed.
func (h *askHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuestionBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	// Reject trailing garbage after the JSON object
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "empty_question", "question cannot be empty")
		return
	}

	resp := h.generator.Answer(r.Context(), question)
	writeJSON(w, http.StatusOK, resp)
}
