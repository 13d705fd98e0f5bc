package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nuagevault/nuagevault/internal/models"
	"github.com/nuagevault/nuagevault/internal/storage"
	"github.com/nuagevault/nuagevault/internal/tasks"
)

// Reconcile outcomes
const (
	OutcomeGone      = "gone"      // Photo row no longer exists
	OutcomeConfirmed = "confirmed" // Pending photo found in storage and marked ready
	OutcomeUnchanged = "unchanged" // Ready photo found in storage
	OutcomeRemoved   = "removed"   // No bytes in storage, row deleted
)

// Reconciler makes photo rows agree with object storage after an upload
// URL expired: a client may have skipped finalize, or never sent the bytes.
type Reconciler struct {
	db     *gorm.DB
	store  storage.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewReconciler creates a Reconciler
func NewReconciler(db *gorm.DB, store storage.Store, logger zerolog.Logger) *Reconciler {
	return &Reconciler{db: db, store: store, logger: logger, now: time.Now}
}

// HandleReconcileUpload processes a tasks.TypeReconcileUpload task
func (r *Reconciler) HandleReconcileUpload(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.ParseTaskPayload(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.PhotoID == "" {
		return fmt.Errorf("%w: missing photo id", asynq.SkipRetry)
	}

	_, err = r.Reconcile(ctx, payload.PhotoID)
	return err
}

// Reconcile checks one photo against storage and returns the outcome
func (r *Reconciler) Reconcile(ctx context.Context, photoID string) (string, error) {
	var photo models.Photo
	if err := models.FindByID(r.db, photoID, &photo); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OutcomeGone, nil
		}
		return "", fmt.Errorf("failed to load photo: %w", err)
	}

	logger := r.logger.With().Str("photo_id", photo.ID).Str("status", photo.Status).Logger()

	info, err := r.store.Stat(ctx, photo.ObjectKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("failed to stat object: %w", err)
		}

		if err := r.db.Delete(&photo).Error; err != nil {
			return "", fmt.Errorf("failed to delete photo: %w", err)
		}
		logger.Info().Msg("Upload never reached storage, photo removed")
		return OutcomeRemoved, nil
	}

	if photo.Status == models.PhotoStatusReady {
		if photo.Size != info.Size {
			if err := r.db.Model(&photo).Update("size", info.Size).Error; err != nil {
				return "", fmt.Errorf("failed to update size: %w", err)
			}
		}
		return OutcomeUnchanged, nil
	}

	now := r.now().UTC()
	err = r.db.Model(&photo).Updates(map[string]interface{}{
		"status":      models.PhotoStatusReady,
		"size":        info.Size,
		"uploaded_at": now,
	}).Error
	if err != nil {
		return "", fmt.Errorf("failed to mark photo ready: %w", err)
	}

	logger.Info().Int64("size", info.Size).Msg("Unfinalized upload found in storage, photo marked ready")
	return OutcomeConfirmed, nil
}

// HandleSweepStaleUploads reconciles every pending photo older than staleAfter.
// It catches photos whose reconcile task was lost.
func (r *Reconciler) HandleSweepStaleUploads(ctx context.Context, staleAfter time.Duration) error {
	cutoff := r.now().Add(-staleAfter)

	var ids []string
	err := r.db.Model(&models.Photo{}).
		Where("status = ? AND created_at < ?", models.PhotoStatusPending, cutoff).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return fmt.Errorf("failed to list stale uploads: %w", err)
	}

	var failed int
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := r.Reconcile(ctx, id); err != nil {
			failed++
			r.logger.Warn().Err(err).Str("photo_id", id).Msg("Failed to reconcile stale upload")
		}
	}

	r.logger.Info().Int("stale", len(ids)).Int("failed", failed).Msg("Stale upload sweep complete")
	if failed > 0 {
		return fmt.Errorf("%d of %d stale uploads failed to reconcile", failed, len(ids))
	}
	return nil
}
