// Package services holds the server-side business logic between the HTTP API
// and the repositories.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/corkboard/internal/common"
	"github.com/dmitrijs2005/corkboard/internal/dbx"
	sc "github.com/dmitrijs2005/corkboard/internal/server/config"
	"github.com/dmitrijs2005/corkboard/internal/server/models"
	"github.com/dmitrijs2005/corkboard/internal/server/repositories/repomanager"
)

// Seams for testing the presign flow without AWS.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// NoteService owns the durable note lifecycle: create (durable id issue),
// partial update, position write on drag release, delete, and attachment
// presigning. The relay never calls into it; only the HTTP API does.
type NoteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewNoteService(db *sql.DB, rm repomanager.RepositoryManager, config *sc.Config) *NoteService {
	return &NoteService{db: db, repomanager: rm, config: config}
}

// CreateNoteInput is the client's view of a new note; the temporary id the
// client used on the relay never reaches storage.
type CreateNoteInput struct {
	Title string
	Body  string
	X     float64
	Y     float64
	Z     int
	Color string
}

// Create stamps the authenticated identity and a freshly issued durable id
// on the note and persists it.
func (s *NoteService) Create(ctx context.Context, identity, roomID string, in CreateNoteInput) (*models.Note, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, fmt.Errorf("%w: room id is required", common.ErrorValidation)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", common.ErrorValidation)
	}

	note := &models.Note{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Title:     in.Title,
		Body:      in.Body,
		X:         in.X,
		Y:         in.Y,
		Z:         in.Z,
		Color:     in.Color,
		CreatedBy: identity,
	}

	note, err := s.repomanager.Notes(s.db).Create(ctx, note)
	if err != nil {
		return nil, fmt.Errorf("error creating note: %w", err)
	}
	return note, nil
}

// List returns the room's durable notes; it is the source of truth clients
// resync from after a reconnect.
func (s *NoteService) List(ctx context.Context, roomID string) ([]*models.Note, error) {
	notes, err := s.repomanager.Notes(s.db).ListByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("error listing notes: %w", err)
	}
	return notes, nil
}

func (s *NoteService) Update(ctx context.Context, noteID string, changes models.NoteChanges) error {
	if changes.IsEmpty() {
		return fmt.Errorf("%w: no fields to update", common.ErrorValidation)
	}
	if err := s.repomanager.Notes(s.db).UpdateFields(ctx, noteID, changes); err != nil {
		return fmt.Errorf("error updating note: %w", err)
	}
	return nil
}

// Move persists the final position of a drag. Intermediate drag frames stay
// on the relay and never reach storage.
func (s *NoteService) Move(ctx context.Context, noteID string, x, y float64) error {
	if err := s.repomanager.Notes(s.db).UpdatePosition(ctx, noteID, x, y); err != nil {
		return fmt.Errorf("error moving note: %w", err)
	}
	return nil
}

func (s *NoteService) Delete(ctx context.Context, noteID string) error {
	if err := s.repomanager.Notes(s.db).Delete(ctx, noteID); err != nil {
		return fmt.Errorf("error deleting note: %w", err)
	}
	return nil
}

func randomStorageKey() (string, error) {
	suffix, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}
	d := time.Now()
	return fmt.Sprintf("notes/%d/%d/%d/%s", d.Year(), d.Month(), d.Day(), suffix), nil
}

func (s *NoteService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// AttachmentPutURL issues a presigned PUT URL for the note's attachment and
// records the storage key against the note. The existence check and the key
// write run in one transaction so a concurrent delete cannot leave a key
// pointing at a vanished note.
func (s *NoteService) AttachmentPutURL(ctx context.Context, noteID string) (string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", fmt.Errorf("error building presign client: %w", err)
	}

	bucket := s.config.S3Bucket
	key, err := randomStorageKey()
	if err != nil {
		return "", fmt.Errorf("error generating storage key: %w", err)
	}

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("error presigning put: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Notes(tx)
		if _, err := repo.GetByID(ctx, noteID); err != nil {
			return err
		}
		return repo.SetAttachmentKey(ctx, noteID, key)
	})
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// AttachmentGetURL issues a presigned GET URL for the note's attachment.
// Notes without an attachment report common.ErrorNotFound.
func (s *NoteService) AttachmentGetURL(ctx context.Context, noteID string) (string, error) {
	note, err := s.repomanager.Notes(s.db).GetByID(ctx, noteID)
	if err != nil {
		return "", err
	}
	if note.AttachmentKey == "" {
		return "", fmt.Errorf("%w: note has no attachment", common.ErrorNotFound)
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", fmt.Errorf("error building presign client: %w", err)
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &note.AttachmentKey,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("error presigning get: %w", err)
	}

	return req.URL, nil
}
