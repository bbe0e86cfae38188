package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"askmynotes/internal/auth"
	"askmynotes/internal/domain"
)

// Notes is the service surface the handlers drive.
type Notes interface {
	Ingest(ctx context.Context, tenantID, sourceID string, file io.Reader, originalName string) (*domain.IngestResult, error)
	RemoveSource(ctx context.Context, tenantID, sourceID string) error
	RemoveTenant(ctx context.Context, tenantID string) error
	Sources(tenantID string) []domain.SourceInfo
	Ask(ctx context.Context, tenantID, subject, question string) (*domain.GroundedAnswer, error)
	GenerateStudySet(ctx context.Context, tenantID, subject, topicHint string) (*domain.StudySet, error)
	History(ctx context.Context, tenantID string) ([]domain.ConversationTurn, error)
	ClearHistory(ctx context.Context, tenantID string) error
}

type handlers struct {
	svc    Notes
	logger *slog.Logger
}

type chatRequest struct {
	Question string `json:"question"`
	Subject  string `json:"subject"`
}

type studyRequest struct {
	Topic   string `json:"topic"`
	Subject string `json:"subject"`
}

type uploadResponse struct {
	Message       string `json:"message"`
	NoteID        string `json:"noteId"`
	OriginalName  string `json:"originalName"`
	ChunksCreated int    `json:"chunksCreated"`
}

// tenantKey scopes a subject to the authenticated user.
func tenantKey(c echo.Context, subjectID string) (string, bool) {
	user := auth.UserID(c)
	if user == "" || subjectID == "" || subjectID == "." || subjectID == ".." || strings.ContainsAny(subjectID, `/\`) {
		return "", false
	}
	return user + "/" + subjectID, true
}

func subjectLabel(label, subjectID string) string {
	if s := strings.TrimSpace(label); s != "" {
		return s
	}
	return subjectID
}

func (h *handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (h *handlers) upload(c echo.Context) error {
	tenant, ok := tenantKey(c, c.Param("subjectId"))
	if !ok {
		return message(c, http.StatusBadRequest, "Invalid subject.")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return message(c, http.StatusBadRequest, "No file uploaded.")
	}
	f, err := fh.Open()
	if err != nil {
		return writeError(c, h.logger, err)
	}
	defer f.Close()

	noteID := uuid.NewString()
	h.logger.Info("processing upload", "tenantID", tenant, "file", fh.Filename, "noteID", noteID)
	res, err := h.svc.Ingest(c.Request().Context(), tenant, noteID, f, fh.Filename)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, uploadResponse{
		Message:       "Note uploaded and processed successfully.",
		NoteID:        res.SourceID,
		OriginalName:  fh.Filename,
		ChunksCreated: res.ChunkCount,
	})
}

func (h *handlers) listNotes(c echo.Context) error {
	tenant, ok := tenantKey(c, c.Param("subjectId"))
	if !ok {
		return message(c, http.StatusBadRequest, "Invalid subject.")
	}
	sources := h.svc.Sources(tenant)
	if sources == nil {
		sources = []domain.SourceInfo{}
	}
	return c.JSON(http.StatusOK, sources)
}

func (h *handlers) deleteNote(c echo.Context) error {
	tenant, ok := tenantKey(c, c.Param("subjectId"))
	if !ok {
		return message(c, http.StatusBadRequest, "Invalid subject.")
	}
	noteID := c.Param("noteId")
	found := false
	for _, s := range h.svc.Sources(tenant) {
		if s.SourceID == noteID {
			found = true
			break
		}
	}
	if !found {
		return message(c, http.StatusNotFound, "Note not found.")
	}
	if err := h.svc.RemoveSource(c.Request().Context(), tenant, noteID); err != nil {
		return writeError(c, h.logger, err)
	}
	return message(c, http.StatusOK, "Note deleted successfully.")
}

func (h *handlers) deleteSubject(c echo.Context) error {
	tenant, ok := tenantKey(c, c.Param("id"))
	if !ok {
		return message(c, http.StatusBadRequest, "Invalid subject.")
	}
	if err := h.svc.RemoveTenant(c.Request().Context(), tenant); err != nil {
		return writeError(c, h.logger, err)
	}
	return message(c, http.StatusOK, "Subject deleted successfully.")
}

func (h *handlers) chat(c echo.Context) error {
	subjectID := c.Param("subjectId")
	tenant, ok := tenantKey(c, subjectID)
	if !ok {
		return message(c, http.StatusBadRequest, "Invalid subject.")
	}
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid JSON.")
	}
	answer, err := h.svc.Ask(c.Request().Context(), tenant, subjectLabel(req.Subject, subjectID), req.Question)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, answer)
}

func (h *handlers) history(c echo.Context) error {
	tenant, ok := tenantKey(c, c.Param("subjectId"))
	if !ok {
		return message(c, http.StatusBadRequest, "Invalid subject.")
	}
	turns, err := h.svc.History(c.Request().Context(), tenant)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	if turns == nil {
		turns = []domain.ConversationTurn{}
	}
	return c.JSON(http.StatusOK, turns)
}

func (h *handlers) clearHistory(c echo.Context) error {
	tenant, ok := tenantKey(c, c.Param("subjectId"))
	if !ok {
		return message(c, http.StatusBadRequest, "Invalid subject.")
	}
	if err := h.svc.ClearHistory(c.Request().Context(), tenant); err != nil {
		return writeError(c, h.logger, err)
	}
	return message(c, http.StatusOK, "Chat history cleared.")
}

func (h *handlers) study(c echo.Context) error {
	subjectID := c.Param("subjectId")
	tenant, ok := tenantKey(c, subjectID)
	if !ok {
		return message(c, http.StatusBadRequest, "Invalid subject.")
	}
	var req studyRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid JSON.")
	}
	set, err := h.svc.GenerateStudySet(c.Request().Context(), tenant, subjectLabel(req.Subject, subjectID), req.Topic)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, set)
}
