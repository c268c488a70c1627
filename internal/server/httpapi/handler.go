// Package httpapi exposes the durable-store REST surface. The relay never
// touches it: clients talk to it directly for note persistence, and its
// failures surface only to the acting client, which compensates on the relay
// with rollback events.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/corkboard/internal/common"
	"github.com/dmitrijs2005/corkboard/internal/logging"
	"github.com/dmitrijs2005/corkboard/internal/server/auth"
	"github.com/dmitrijs2005/corkboard/internal/server/models"
	"github.com/dmitrijs2005/corkboard/internal/server/services"
)

// noteSvc is the slice of NoteService the handlers need; tests provide a fake.
type noteSvc interface {
	Create(ctx context.Context, identity, roomID string, in services.CreateNoteInput) (*models.Note, error)
	List(ctx context.Context, roomID string) ([]*models.Note, error)
	Update(ctx context.Context, noteID string, changes models.NoteChanges) error
	Move(ctx context.Context, noteID string, x, y float64) error
	Delete(ctx context.Context, noteID string) error
	AttachmentPutURL(ctx context.Context, noteID string) (string, error)
	AttachmentGetURL(ctx context.Context, noteID string) (string, error)
}

// Handler routes the REST API.
type Handler struct {
	notes         noteSvc
	logger        logging.Logger
	secretKey     []byte
	tokenValidity time.Duration
}

func NewHandler(notes noteSvc, logger logging.Logger, secretKey string, tokenValidity time.Duration) *Handler {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Handler{
		notes:         notes,
		logger:        logger.With("module", "httpapi"),
		secretKey:     []byte(secretKey),
		tokenValidity: tokenValidity,
	}
}

// Router builds the route table. The token endpoint stays outside the auth
// middleware; everything else requires a bearer token.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/token", h.mintToken).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.authMiddleware)
	api.HandleFunc("/rooms/{roomID}/notes", h.createNote).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{roomID}/notes", h.listNotes).Methods(http.MethodGet)
	api.HandleFunc("/notes/{noteID}", h.updateNote).Methods(http.MethodPatch)
	api.HandleFunc("/notes/{noteID}", h.deleteNote).Methods(http.MethodDelete)
	api.HandleFunc("/notes/{noteID}/position", h.moveNote).Methods(http.MethodPut)
	api.HandleFunc("/notes/{noteID}/attachment", h.attachmentPutURL).Methods(http.MethodPost)
	api.HandleFunc("/notes/{noteID}/attachment", h.attachmentGetURL).Methods(http.MethodGet)

	return r
}

// ---- DTOs ----

type tokenRequest struct {
	DisplayName string `json:"displayName"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type createNoteRequest struct {
	Title string  `json:"title"`
	Body  string  `json:"body"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     int     `json:"z"`
	Color string  `json:"color"`
}

type updateNoteRequest struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
	Color *string `json:"color"`
	Z     *int    `json:"z"`
}

type moveNoteRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type noteResponse struct {
	ID        string  `json:"id"`
	RoomID    string  `json:"roomId"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         int     `json:"z"`
	Color     string  `json:"color,omitempty"`
	CreatedBy string  `json:"createdBy"`
}

type urlResponse struct {
	URL string `json:"url"`
}

func toNoteResponse(n *models.Note) noteResponse {
	return noteResponse{
		ID: n.ID, RoomID: n.RoomID, Title: n.Title, Body: n.Body,
		X: n.X, Y: n.Y, Z: n.Z, Color: n.Color, CreatedBy: n.CreatedBy,
	}
}

// ---- handlers ----

// mintToken mirrors the external identity provider for development setups:
// it exchanges a display name for a signed identity token.
func (h *Handler) mintToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DisplayName == "" {
		h.writeError(w, r, common.ErrorValidation)
		return
	}

	token, err := auth.GenerateToken(req.DisplayName, h.secretKey, h.tokenValidity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) createNote(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, r, common.ErrorUnauthorized)
		return
	}

	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, common.ErrorValidation)
		return
	}

	note, err := h.notes.Create(r.Context(), identity, mux.Vars(r)["roomID"], services.CreateNoteInput{
		Title: req.Title, Body: req.Body, X: req.X, Y: req.Y, Z: req.Z, Color: req.Color,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toNoteResponse(note))
}

func (h *Handler) listNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.List(r.Context(), mux.Vars(r)["roomID"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]noteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, toNoteResponse(n))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) updateNote(w http.ResponseWriter, r *http.Request) {
	var req updateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, common.ErrorValidation)
		return
	}

	err := h.notes.Update(r.Context(), mux.Vars(r)["noteID"], models.NoteChanges{
		Title: req.Title, Body: req.Body, Color: req.Color, Z: req.Z,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) moveNote(w http.ResponseWriter, r *http.Request) {
	var req moveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, common.ErrorValidation)
		return
	}

	if err := h.notes.Move(r.Context(), mux.Vars(r)["noteID"], req.X, req.Y); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Delete(r.Context(), mux.Vars(r)["noteID"]); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) attachmentPutURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.notes.AttachmentPutURL(r.Context(), mux.Vars(r)["noteID"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, urlResponse{URL: url})
}

func (h *Handler) attachmentGetURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.notes.AttachmentGetURL(r.Context(), mux.Vars(r)["noteID"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, urlResponse{URL: url})
}

// ---- helpers ----

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrorNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrorValidation):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}
