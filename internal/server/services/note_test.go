package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/corkboard/internal/common"
	"github.com/dmitrijs2005/corkboard/internal/dbx"
	sc "github.com/dmitrijs2005/corkboard/internal/server/config"
	"github.com/dmitrijs2005/corkboard/internal/server/models"
	notesrepo "github.com/dmitrijs2005/corkboard/internal/server/repositories/notes"
)

// ---- fakes ----

type fakeNotesRepo struct {
	created *models.Note

	createErr error
	getOut    *models.Note
	getErr    error
	listOut   []*models.Note
	listErr   error
	updErr    error
	moveErr   error
	setKeyErr error
	delErr    error

	movedX, movedY float64
	attachmentKey  string
}

func (f *fakeNotesRepo) Create(ctx context.Context, n *models.Note) (*models.Note, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = n
	return n, nil
}

func (f *fakeNotesRepo) GetByID(ctx context.Context, id string) (*models.Note, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeNotesRepo) ListByRoom(ctx context.Context, roomID string) ([]*models.Note, error) {
	return f.listOut, f.listErr
}

func (f *fakeNotesRepo) UpdateFields(ctx context.Context, id string, changes models.NoteChanges) error {
	return f.updErr
}

func (f *fakeNotesRepo) UpdatePosition(ctx context.Context, id string, x, y float64) error {
	if f.moveErr != nil {
		return f.moveErr
	}
	f.movedX, f.movedY = x, y
	return nil
}

func (f *fakeNotesRepo) SetAttachmentKey(ctx context.Context, id, key string) error {
	if f.setKeyErr != nil {
		return f.setKeyErr
	}
	f.attachmentKey = key
	return nil
}

func (f *fakeNotesRepo) Delete(ctx context.Context, id string) error { return f.delErr }

type fakeRepoManager struct {
	notes *fakeNotesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Notes(db dbx.DBTX) notesrepo.Repository      { return m.notes }

func newService(t *testing.T, repo *fakeNotesRepo) (*NoteService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &sc.Config{S3Bucket: "attachments", S3Region: "us-east-1"}
	return NewNoteService(db, &fakeRepoManager{notes: repo}, cfg), mock
}

// stubPresign routes the presign seams through fakes returning fixed URLs.
func stubPresign(t *testing.T, putURL, getURL string, presignErr error) {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	origPresign := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
		newS3PresignClient = origPresign
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client { return nil }
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return nil }
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if presignErr != nil {
			return nil, presignErr
		}
		return &v4.PresignedHTTPRequest{URL: putURL}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if presignErr != nil {
			return nil, presignErr
		}
		return &v4.PresignedHTTPRequest{URL: getURL}, nil
	}
}

// ---- tests ----

func TestCreate_StampsIdentityAndDurableID(t *testing.T) {
	repo := &fakeNotesRepo{}
	s, _ := newService(t, repo)

	note, err := s.Create(context.Background(), "alice", "r1", CreateNoteInput{Title: "T", X: 10, Y: 20})
	require.NoError(t, err)

	assert.NotEmpty(t, note.ID)
	assert.NotContains(t, note.ID, common.TempIDPrefix)
	assert.Equal(t, "alice", note.CreatedBy)
	assert.Equal(t, "r1", note.RoomID)
	assert.Equal(t, 10.0, repo.created.X)
}

func TestCreate_Validation(t *testing.T) {
	s, _ := newService(t, &fakeNotesRepo{})

	_, err := s.Create(context.Background(), "alice", "", CreateNoteInput{Title: "T"})
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = s.Create(context.Background(), "alice", "r1", CreateNoteInput{Title: "   "})
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestUpdate_EmptyChangeSetRejected(t *testing.T) {
	s, _ := newService(t, &fakeNotesRepo{})

	err := s.Update(context.Background(), "n1", models.NoteChanges{})
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestUpdate_NotFoundPropagates(t *testing.T) {
	s, _ := newService(t, &fakeNotesRepo{updErr: common.ErrorNotFound})

	title := "x"
	err := s.Update(context.Background(), "missing", models.NoteChanges{Title: &title})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMove_WritesFinalPosition(t *testing.T) {
	repo := &fakeNotesRepo{}
	s, _ := newService(t, repo)

	require.NoError(t, s.Move(context.Background(), "n1", 50, 60))
	assert.Equal(t, 50.0, repo.movedX)
	assert.Equal(t, 60.0, repo.movedY)
}

func TestList_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	s, _ := newService(t, &fakeNotesRepo{listErr: boom})

	_, err := s.List(context.Background(), "r1")
	assert.ErrorIs(t, err, boom)
}

func TestAttachmentPutURL_RecordsKey(t *testing.T) {
	repo := &fakeNotesRepo{getOut: &models.Note{ID: "n1"}}
	s, mock := newService(t, repo)
	stubPresign(t, "http://put", "http://get", nil)

	mock.ExpectBegin()
	mock.ExpectCommit()

	url, err := s.AttachmentPutURL(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, "http://put", url)
	assert.NotEmpty(t, repo.attachmentKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentPutURL_UnknownNote(t *testing.T) {
	s, mock := newService(t, &fakeNotesRepo{getErr: common.ErrorNotFound})
	stubPresign(t, "http://put", "http://get", nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := s.AttachmentPutURL(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentGetURL_NoAttachment(t *testing.T) {
	s, _ := newService(t, &fakeNotesRepo{getOut: &models.Note{ID: "n1"}})
	stubPresign(t, "http://put", "http://get", nil)

	_, err := s.AttachmentGetURL(context.Background(), "n1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAttachmentGetURL_OK(t *testing.T) {
	s, _ := newService(t, &fakeNotesRepo{getOut: &models.Note{ID: "n1", AttachmentKey: "notes/2026/1/1/k"}})
	stubPresign(t, "http://put", "http://get", nil)

	url, err := s.AttachmentGetURL(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, "http://get", url)
}

func TestAttachment_PresignFailure(t *testing.T) {
	s, _ := newService(t, &fakeNotesRepo{getOut: &models.Note{ID: "n1", AttachmentKey: "k"}})
	stubPresign(t, "", "", errors.New("presign down"))

	_, err := s.AttachmentPutURL(context.Background(), "n1")
	assert.Error(t, err)

	_, err = s.AttachmentGetURL(context.Background(), "n1")
	assert.Error(t, err)
}
