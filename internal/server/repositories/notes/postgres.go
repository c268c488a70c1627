// Package notes provides the PostgreSQL-backed repository for durable
// sticky-note persistence.
package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/corkboard/internal/common"
	"github.com/dmitrijs2005/corkboard/internal/dbx"
	"github.com/dmitrijs2005/corkboard/internal/server/models"
)

// PostgresRepository implements note storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, note *models.Note) (*models.Note, error) {
	query := `
		INSERT INTO notes (id, room_id, title, body, x, y, z, color, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		note.ID, note.RoomID, note.Title, note.Body, note.X, note.Y, note.Z, note.Color, note.CreatedBy,
	).Scan(&note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return note, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	query := `
		SELECT id, room_id, title, body, x, y, z, color, created_by, attachment_key, created_at, updated_at
		FROM notes WHERE id = $1
	`
	note := &models.Note{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&note.ID, &note.RoomID, &note.Title, &note.Body, &note.X, &note.Y, &note.Z,
		&note.Color, &note.CreatedBy, &note.AttachmentKey, &note.CreatedAt, &note.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return note, nil
}

func (r *PostgresRepository) ListByRoom(ctx context.Context, roomID string) ([]*models.Note, error) {
	query := `
		SELECT id, room_id, title, body, x, y, z, color, created_by, attachment_key, created_at, updated_at
		FROM notes WHERE room_id = $1
		ORDER BY z, created_at
	`
	rows, err := r.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	defer rows.Close()

	var result []*models.Note
	for rows.Next() {
		var note models.Note
		if err := rows.Scan(
			&note.ID, &note.RoomID, &note.Title, &note.Body, &note.X, &note.Y, &note.Z,
			&note.Color, &note.CreatedBy, &note.AttachmentKey, &note.CreatedAt, &note.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateFields applies a partial update; COALESCE keeps columns whose change
// is nil untouched so a single statement covers every field combination.
func (r *PostgresRepository) UpdateFields(ctx context.Context, id string, changes models.NoteChanges) error {
	query := `
		UPDATE notes SET
			title = COALESCE($2, title),
			body = COALESCE($3, body),
			color = COALESCE($4, color),
			z = COALESCE($5, z),
			updated_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, changes.Title, changes.Body, changes.Color, changes.Z)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkAffected(res)
}

func (r *PostgresRepository) UpdatePosition(ctx context.Context, id string, x, y float64) error {
	query := `UPDATE notes SET x = $2, y = $3, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, x, y)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkAffected(res)
}

func (r *PostgresRepository) SetAttachmentKey(ctx context.Context, id, key string) error {
	query := `UPDATE notes SET attachment_key = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, key)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkAffected(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
