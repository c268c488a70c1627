// Package api is the HTTP client for the Corkboard durable store. It mints
// an identity token, then performs note CRUD scoped to that identity.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/corkboard/internal/client/models"
	"github.com/dmitrijs2005/corkboard/internal/common"
)

// DefaultTimeout bounds each durable call. A call that outlives it is
// treated as failed and the caller's rollback path runs.
const DefaultTimeout = 3 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration

	mu    sync.RWMutex
	token string
}

// New returns a client for the server at baseURL (e.g. "http://host:8080").
// A non-positive timeout falls back to DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
	}
}

// SetToken installs a previously issued identity token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current identity token, empty if none was issued yet.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type tokenRequest struct {
	DisplayName string `json:"displayName"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type noteDTO struct {
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

type createNoteRequest struct {
	Title string  `json:"title"`
	Body  string  `json:"body"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     int     `json:"z"`
	Color string  `json:"color,omitempty"`
}

type updateNoteRequest struct {
	Title *string `json:"title,omitempty"`
	Body  *string `json:"body,omitempty"`
	Color *string `json:"color,omitempty"`
	Z     *int    `json:"z,omitempty"`
}

type moveNoteRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type urlResponse struct {
	URL string `json:"url"`
}

// Login exchanges a display name for an identity token and installs it for
// subsequent calls.
func (c *Client) Login(ctx context.Context, displayName string) error {
	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, "/api/token", tokenRequest{DisplayName: displayName}, &resp)
	if err != nil {
		return err
	}
	c.SetToken(resp.Token)
	return nil
}

// CreateNote persists a new note and returns its durable id.
func (c *Client) CreateNote(ctx context.Context, roomID string, draft models.NoteDraft) (string, error) {
	var resp noteDTO
	err := c.do(ctx, http.MethodPost, "/api/rooms/"+roomID+"/notes", createNoteRequest{
		Title: draft.Title,
		Body:  draft.Body,
		X:     draft.X,
		Y:     draft.Y,
		Z:     draft.Z,
		Color: draft.Color,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ListNotes returns the room's persisted notes.
func (c *Client) ListNotes(ctx context.Context, roomID string) ([]models.Note, error) {
	var resp []noteDTO
	if err := c.do(ctx, http.MethodGet, "/api/rooms/"+roomID+"/notes", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]models.Note, 0, len(resp))
	for _, d := range resp {
		out = append(out, models.Note{
			ID:        d.ID,
			RoomID:    d.RoomID,
			Title:     d.Title,
			Body:      d.Body,
			X:         d.X,
			Y:         d.Y,
			Z:         d.Z,
			Color:     d.Color,
			CreatedBy: d.CreatedBy,
			State:     models.NoteStateConfirmed,
		})
	}
	return out, nil
}

// UpdateNote persists a partial edit.
func (c *Client) UpdateNote(ctx context.Context, id string, changes models.NoteChanges) error {
	return c.do(ctx, http.MethodPatch, "/api/notes/"+id, updateNoteRequest{
		Title: changes.Title,
		Body:  changes.Body,
		Color: changes.Color,
		Z:     changes.Z,
	}, nil)
}

// MoveNote persists a note's final drag position.
func (c *Client) MoveNote(ctx context.Context, id string, x, y float64) error {
	return c.do(ctx, http.MethodPut, "/api/notes/"+id+"/position", moveNoteRequest{X: x, Y: y}, nil)
}

// DeleteNote removes a note from the durable store.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notes/"+id, nil, nil)
}

// AttachmentPutURL requests a presigned upload URL for a note's attachment.
func (c *Client) AttachmentPutURL(ctx context.Context, id string) (string, error) {
	var resp urlResponse
	if err := c.do(ctx, http.MethodPost, "/api/notes/"+id+"/attachment", nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// AttachmentGetURL requests a presigned download URL for a note's attachment.
func (c *Client) AttachmentGetURL(ctx context.Context, id string) (string, error) {
	var resp urlResponse
	if err := c.do(ctx, http.MethodGet, "/api/notes/"+id+"/attachment", nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set(common.AuthHeaderName, "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := statusToError(resp.StatusCode); err != nil {
		return err
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func statusToError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return common.ErrorNotFound
	case code == http.StatusBadRequest:
		return common.ErrorValidation
	case code == http.StatusUnauthorized:
		return common.ErrorUnauthorized
	default:
		return fmt.Errorf("%w: unexpected status %d", common.ErrorInternal, code)
	}
}
