package store

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mailprobe/models"
	"mailprobe/verifier"
)

// EmailRecordStore maintains the per-address history behind risk scoring.
type EmailRecordStore struct {
	db *gorm.DB
}

func NewEmailRecordStore(db *gorm.DB) *EmailRecordStore {
	return &EmailRecordStore{db: db}
}

// GetByEmail returns the stored record, or nil when the address is unseen.
func (s *EmailRecordStore) GetByEmail(email string) (*models.EmailRecord, error) {
	var rec models.EmailRecord
	err := s.db.Where("email = ?", normalize(email)).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpsertResult folds a fresh validation result into the address's record.
func (s *EmailRecordStore) UpsertResult(result verifier.ValidationResult) error {
	now := time.Now()
	rec := models.EmailRecord{
		Email:           normalize(result.Email),
		Domain:          result.Address.Domain,
		SyntaxValid:     result.Checks.Syntax,
		IsCatchAll:      result.IsCatchAll,
		ConfidenceScore: result.ConfidenceScore,
		LastVerifiedAt:  &now,
	}
	if result.Checks.DNSValid != nil {
		rec.DNSValid = *result.Checks.DNSValid
	}
	if result.Checks.MXRecords != nil {
		rec.HasMX = *result.Checks.MXRecords
	}
	if result.Checks.IsDisposable != nil {
		rec.IsDisposable = *result.Checks.IsDisposable
	}
	if result.Checks.IsRoleBased != nil {
		rec.IsRoleBased = *result.Checks.IsRoleBased
	}

	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"domain", "syntax_valid", "dns_valid", "has_mx", "is_catch_all",
			"is_disposable", "is_role_based", "confidence_score",
			"last_verified_at", "updated_at",
		}),
	}).Create(&rec).Error
}

// RecordBounce stores the bounce event and bumps the address's counters.
// Hard bounces additionally increment the hard-bounce count that forces the
// risk scorer to HIGH.
func (s *EmailRecordStore) RecordBounce(bounce models.Bounce) error {
	bounce.Email = normalize(bounce.Email)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&bounce).Error; err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]interface{}{
			"bounce_count":     gorm.Expr("bounce_count + 1"),
			"last_bounce_date": now,
		}
		if bounce.Type == "hard" {
			updates["hard_bounce_count"] = gorm.Expr("hard_bounce_count + 1")
		}

		res := tx.Model(&models.EmailRecord{}).
			Where("email = ?", bounce.Email).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			rec := models.EmailRecord{
				Email:          bounce.Email,
				Domain:         domainOf(bounce.Email),
				BounceCount:    1,
				LastBounceDate: &now,
			}
			if bounce.Type == "hard" {
				rec.HardBounceCount = 1
			}
			return tx.Create(&rec).Error
		}
		return nil
	})
}

// RiskRecord assembles the scoring input for one address from stored history.
// Unseen addresses get a zero-valued record so the scorer still runs.
func (s *EmailRecordStore) RiskRecord(email string) (verifier.EmailRiskRecord, error) {
	rec, err := s.GetByEmail(email)
	if err != nil {
		return verifier.EmailRiskRecord{}, err
	}
	if rec == nil {
		return verifier.EmailRiskRecord{
			Email:  normalize(email),
			Domain: domainOf(email),
		}, nil
	}
	return verifier.EmailRiskRecord{
		Email:           rec.Email,
		Domain:          rec.Domain,
		BounceCount:     rec.BounceCount,
		HardBounceCount: rec.HardBounceCount,
		LastBounceDate:  rec.LastBounceDate,
		IsCatchAll:      rec.IsCatchAll,
		IsDisposable:    rec.IsDisposable,
		IsRoleBased:     rec.IsRoleBased,
		ConfidenceScore: rec.ConfidenceScore,
		SyntaxValid:     rec.SyntaxValid,
		DNSValid:        rec.DNSValid,
		HasMX:           rec.HasMX,
	}, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func domainOf(email string) string {
	if at := strings.LastIndex(normalize(email), "@"); at >= 0 {
		return normalize(email)[at+1:]
	}
	return ""
}
