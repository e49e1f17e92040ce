package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mailprobe/models"
	"mailprobe/store"
	"mailprobe/verifier"
)

// VerifyWorker drains pending verification jobs from the database. Jobs are
// claimed one at a time; each job's addresses stream through the engine's
// worker pool and results are written back incrementally so progress survives
// a crash.
type VerifyWorker struct {
	DB       *gorm.DB
	Verifier *verifier.Verifier
	Records  *store.EmailRecordStore
	Logger   *logrus.Logger
	Interval time.Duration
	Options  verifier.Options
}

func NewVerifyWorker(db *gorm.DB, v *verifier.Verifier, records *store.EmailRecordStore, logger *logrus.Logger, interval, probeTimeout time.Duration) *VerifyWorker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	opts := verifier.DefaultOptions()
	if probeTimeout > 0 {
		opts.SMTPTimeout = probeTimeout
	}
	return &VerifyWorker{
		DB:       db,
		Verifier: v,
		Records:  records,
		Logger:   logger,
		Interval: interval,
		Options:  opts,
	}
}

func (w *VerifyWorker) Start(ctx context.Context) {
	w.Logger.Info("verification worker started")

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("verification worker shutting down")
			return
		case <-ticker.C:
			w.processPendingJobs(ctx)
		}
	}
}

func (w *VerifyWorker) processPendingJobs(ctx context.Context) {
	for {
		job, ok := w.claimNextJob()
		if !ok {
			return
		}
		if err := w.runJob(ctx, job); err != nil {
			w.Logger.WithFields(logrus.Fields{
				"component": "verify_worker",
				"job_id":    job.ID,
			}).Errorf("job failed: %v", err)
			sentry.CaptureException(err)
			w.DB.Model(job).Updates(map[string]interface{}{
				"status":     "failed",
				"last_error": err.Error(),
			})
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// claimNextJob flips the oldest pending job to processing inside a
// transaction. The row is locked with SKIP LOCKED so concurrent workers
// never claim the same job twice; a second worker simply sees the next
// pending row.
func (w *VerifyWorker) claimNextJob() (*models.VerificationJob, bool) {
	var job models.VerificationJob
	err := w.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", "pending").
			Order("created_at asc").
			First(&job).Error; err != nil {
			return err
		}
		now := time.Now()
		return tx.Model(&job).Updates(map[string]interface{}{
			"status":     "processing",
			"started_at": now,
		}).Error
	})
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			w.Logger.Warnf("claiming job failed: %v", err)
		}
		return nil, false
	}
	return &job, true
}

func (w *VerifyWorker) runJob(ctx context.Context, job *models.VerificationJob) error {
	var items []models.VerificationItem
	if err := w.DB.Where("job_id = ? AND status = ?", job.ID, "pending").
		Find(&items).Error; err != nil {
		return err
	}

	w.Logger.WithFields(logrus.Fields{
		"component": "verify_worker",
		"job_id":    job.ID,
		"items":     len(items),
	}).Info("processing verification job")
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category: "verify_worker",
		Message:  fmt.Sprintf("processing job %d (%d items)", job.ID, len(items)),
		Level:    sentry.LevelInfo,
	})

	emails := make([]string, len(items))
	itemsByEmail := make(map[string]*models.VerificationItem, len(items))
	for i := range items {
		emails[i] = items[i].Email
		itemsByEmail[normalizeKey(items[i].Email)] = &items[i]
	}

	summary := verifier.BatchSummary{}
	results := w.Verifier.ValidateBatch(ctx, emails, w.Options,
		verifier.BatchOptions{Advanced: job.Advanced})

	for result := range results {
		summary.Count(result)
		w.storeResult(job, itemsByEmail[normalizeKey(result.Email)], result)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	return w.DB.Model(job).Updates(map[string]interface{}{
		"status":           "completed",
		"completed_at":     now,
		"total_count":      summary.Total,
		"valid_count":      summary.Valid,
		"invalid_count":    summary.Invalid,
		"disposable_count": summary.Disposable,
		"catch_all_count":  summary.CatchAll,
		"unknown_count":    summary.Unknown,
		"error_count":      summary.Errors,
	}).Error
}

func (w *VerifyWorker) storeResult(job *models.VerificationJob, item *models.VerificationItem, result verifier.ValidationResult) {
	if item == nil {
		return
	}
	details, _ := json.Marshal(result)
	if err := w.DB.Model(item).Updates(map[string]interface{}{
		"status":           "done",
		"deliverability":   result.Deliverability,
		"confidence_score": result.ConfidenceScore,
		"tier":             string(result.Tier),
		"is_catch_all":     result.IsCatchAll,
		"reason":           result.Reason,
		"details":          string(details),
	}).Error; err != nil {
		w.Logger.WithFields(logrus.Fields{
			"component": "verify_worker",
			"job_id":    job.ID,
			"email":     result.Email,
		}).Warnf("storing item result failed: %v", err)
	}

	// History for risk scoring; best effort.
	if w.Records != nil && result.Checks.Syntax {
		if err := w.Records.UpsertResult(result); err != nil {
			w.Logger.Warnf("updating email record for %s failed: %v", result.Email, err)
		}
	}
}

func normalizeKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
