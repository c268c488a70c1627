package notes

import (
	"context"

	"github.com/dmitrijs2005/corkboard/internal/server/models"
)

// Repository is the persistence contract for durable notes.
type Repository interface {
	Create(ctx context.Context, note *models.Note) (*models.Note, error)
	GetByID(ctx context.Context, id string) (*models.Note, error)
	ListByRoom(ctx context.Context, roomID string) ([]*models.Note, error)
	UpdateFields(ctx context.Context, id string, changes models.NoteChanges) error
	UpdatePosition(ctx context.Context, id string, x, y float64) error
	SetAttachmentKey(ctx context.Context, id, key string) error
	Delete(ctx context.Context, id string) error
}
