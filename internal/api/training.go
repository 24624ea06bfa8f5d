package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vaayuronics/anticlanker/internal/oracle"
)

// addTrainingRequest is a labeled example: a message plus its spam verdict.
type addTrainingRequest struct {
	Content string `json:"content"`
	Label   string `json:"label"`
}

type trimTrainingRequest struct {
	Count int `json:"count"`
}

// ListTraining returns the labeled examples fed to the classifier, in
// insertion order.
func (h *Handler) ListTraining(w http.ResponseWriter, r *http.Request) {
	examples, err := h.repo.ListTrainingExamples(r.Context())
	if err != nil {
		slog.Error("Failed to list training examples", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list training examples")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(examples),
		"messages": examples,
	})
}

// AddTraining appends a labeled example as a user/assistant message pair.
func (h *Handler) AddTraining(w http.ResponseWriter, r *http.Request) {
	var req addTrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		Error(w, http.StatusBadRequest, "'content' is required")
		return
	}

	label := normalizeLabel(req.Label)
	if label == "" {
		Error(w, http.StatusBadRequest, "'label' must be Yes or No")
		return
	}

	ctx := r.Context()
	if err := h.repo.AppendTrainingExample(ctx, "user", req.Content); err != nil {
		slog.Error("Failed to append training example", "error", err)
		Error(w, http.StatusInternalServerError, "failed to append training example")
		return
	}
	if err := h.repo.AppendTrainingExample(ctx, "assistant", label); err != nil {
		slog.Error("Failed to append training label", "error", err)
		Error(w, http.StatusInternalServerError, "failed to append training example")
		return
	}

	slog.Info("Training example added", "label", label)
	JSON(w, http.StatusCreated, map[string]string{"status": "added", "label": label})
}

// TrimTraining deletes the most recent examples. An unlabeled example left
// behind by a crashed append is removed the same way.
func (h *Handler) TrimTraining(w http.ResponseWriter, r *http.Request) {
	var req trimTrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Count <= 0 {
		Error(w, http.StatusBadRequest, "'count' must be > 0")
		return
	}

	removed, err := h.repo.TrimTrainingExamples(r.Context(), req.Count)
	if err != nil {
		slog.Error("Failed to trim training examples", "error", err)
		Error(w, http.StatusInternalServerError, "failed to trim training examples")
		return
	}

	slog.Info("Training examples trimmed", "removed", removed)
	JSON(w, http.StatusOK, map[string]interface{}{"status": "trimmed", "removed": removed})
}

func normalizeLabel(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "yes":
		return string(oracle.VerdictYes)
	case "no":
		return string(oracle.VerdictNo)
	}
	return ""
}
