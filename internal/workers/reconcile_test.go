package workers

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nuagevault/nuagevault/internal/auth"
	"github.com/nuagevault/nuagevault/internal/config"
	"github.com/nuagevault/nuagevault/internal/models"
	"github.com/nuagevault/nuagevault/internal/server"
	"github.com/nuagevault/nuagevault/internal/storage"
	"github.com/nuagevault/nuagevault/internal/tasks"
)

type fixture struct {
	db         *gorm.DB
	store      *storage.DiskStore
	reconciler *Reconciler
	album      models.Album
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{Database: config.DatabaseConfig{URL: filepath.Join(dir, "test.sqlite")}}
	db, err := server.InitDatabase(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	store, err := storage.NewDiskStore(filepath.Join(dir, "objects"), "http://localhost", auth.NewTokenManager("secret", time.Hour))
	require.NoError(t, err)

	user := models.User{Email: "ann@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	album := models.Album{UserID: user.ID, Title: "Trips"}
	require.NoError(t, db.Create(&album).Error)

	return &fixture{
		db:         db,
		store:      store,
		reconciler: NewReconciler(db, store, zerolog.Nop()),
		album:      album,
	}
}

func (f *fixture) photo(t *testing.T, status string, createdAt time.Time) models.Photo {
	t.Helper()
	p := models.Photo{
		AlbumID:     f.album.ID,
		UserID:      f.album.UserID,
		Filename:    "beach.jpg",
		ContentType: "image/jpeg",
		Status:      status,
	}
	p.CreatedAt = createdAt
	p.ID = models.NewID()
	p.ObjectKey = storage.PhotoKey(p.UserID, p.ID)
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *fixture) upload(t *testing.T, p models.Photo, data []byte) {
	t.Helper()
	require.NoError(t, f.store.Put(context.Background(), p.ObjectKey, p.ContentType, bytes.NewReader(data), int64(len(data))))
}

func (f *fixture) reload(t *testing.T, id string) (models.Photo, bool) {
	t.Helper()
	var p models.Photo
	err := models.FindByID(f.db, id, &p)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, false
	}
	require.NoError(t, err)
	return p, true
}

func TestReconcile_ConfirmsUnfinalizedUpload(t *testing.T) {
	f := newFixture(t)
	p := f.photo(t, models.PhotoStatusPending, time.Now())
	f.upload(t, p, []byte("jpeg bytes"))

	outcome, err := f.reconciler.Reconcile(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, outcome)

	got, ok := f.reload(t, p.ID)
	require.True(t, ok)
	assert.Equal(t, models.PhotoStatusReady, got.Status)
	assert.Equal(t, int64(10), got.Size)
	assert.NotNil(t, got.UploadedAt)
}

func TestReconcile_RemovesMissingUpload(t *testing.T) {
	f := newFixture(t)
	p := f.photo(t, models.PhotoStatusPending, time.Now())

	outcome, err := f.reconciler.Reconcile(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoved, outcome)

	_, ok := f.reload(t, p.ID)
	assert.False(t, ok, "photo without bytes should be deleted")
}

func TestReconcile_ReadyPhotoKeepsStatus(t *testing.T) {
	f := newFixture(t)
	p := f.photo(t, models.PhotoStatusReady, time.Now())
	f.upload(t, p, []byte("abc"))

	outcome, err := f.reconciler.Reconcile(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)

	got, _ := f.reload(t, p.ID)
	assert.Equal(t, models.PhotoStatusReady, got.Status)
	assert.Equal(t, int64(3), got.Size, "size should be filled in from storage")
}

func TestReconcile_DeletedPhoto(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.reconciler.Reconcile(context.Background(), "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	require.NoError(t, err)
	assert.Equal(t, OutcomeGone, outcome)
}

func TestHandleReconcileUpload(t *testing.T) {
	f := newFixture(t)
	p := f.photo(t, models.PhotoStatusPending, time.Now())
	f.upload(t, p, []byte("jpeg"))

	task, err := tasks.NewReconcileUploadTask(p.ID)
	require.NoError(t, err)
	require.NoError(t, f.reconciler.HandleReconcileUpload(context.Background(), task))

	got, _ := f.reload(t, p.ID)
	assert.Equal(t, models.PhotoStatusReady, got.Status)
}

func TestHandleReconcileUpload_BadPayload(t *testing.T) {
	f := newFixture(t)

	task, err := tasks.NewReconcileUploadTask("")
	require.NoError(t, err)
	assert.Error(t, f.reconciler.HandleReconcileUpload(context.Background(), task))
}

func TestSweepStaleUploads(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	staleUploaded := f.photo(t, models.PhotoStatusPending, now.Add(-48*time.Hour))
	f.upload(t, staleUploaded, []byte("bytes"))
	staleMissing := f.photo(t, models.PhotoStatusPending, now.Add(-48*time.Hour))
	fresh := f.photo(t, models.PhotoStatusPending, now.Add(-time.Minute))

	require.NoError(t, f.reconciler.HandleSweepStaleUploads(context.Background(), 24*time.Hour))

	got, ok := f.reload(t, staleUploaded.ID)
	require.True(t, ok)
	assert.Equal(t, models.PhotoStatusReady, got.Status)

	_, ok = f.reload(t, staleMissing.ID)
	assert.False(t, ok)

	got, ok = f.reload(t, fresh.ID)
	require.True(t, ok)
	assert.Equal(t, models.PhotoStatusPending, got.Status, "recent uploads are left alone")
}
