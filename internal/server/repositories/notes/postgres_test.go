package notes

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/corkboard/internal/common"
	"github.com/dmitrijs2005/corkboard/internal/server/models"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate_OK(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO notes")).
		WithArgs("note_42", "r1", "T", "body", 10.0, 20.0, 0, "#ff0", "alice").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	note, err := repo.Create(context.Background(), &models.Note{
		ID: "note_42", RoomID: "r1", Title: "T", Body: "body",
		X: 10, Y: 20, Color: "#ff0", CreatedBy: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, now, note.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT .* FROM notes WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListByRoom_OK(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	cols := []string{"id", "room_id", "title", "body", "x", "y", "z", "color", "created_by", "attachment_key", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT .* FROM notes WHERE room_id").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("n1", "r1", "a", "", 1.0, 2.0, 0, "", "alice", "", now, now).
			AddRow("n2", "r1", "b", "", 3.0, 4.0, 1, "", "bob", "", now, now))

	notes, err := repo.ListByRoom(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "n1", notes[0].ID)
	assert.Equal(t, "n2", notes[1].ID)
}

func TestUpdateFields_PartialChange(t *testing.T) {
	repo, mock := newMockRepo(t)

	title := "New"
	mock.ExpectExec("UPDATE notes SET").
		WithArgs("n1", "New", nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateFields(context.Background(), "n1", models.NoteChanges{Title: &title})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePosition_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE notes SET x").
		WithArgs("missing", 1.0, 2.0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePosition(context.Background(), "missing", 1, 2)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete_OK(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM notes").
		WithArgs("n1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), "n1"))
}

func TestDelete_DBError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM notes").
		WithArgs("n1").
		WillReturnError(errors.New("connection reset"))

	err := repo.Delete(context.Background(), "n1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}
