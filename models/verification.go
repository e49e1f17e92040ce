package models

import (
	"time"

	"gorm.io/gorm"
)

// VerificationJob represents a bulk verification task submitted by a caller.
type VerificationJob struct {
	gorm.Model
	Name        string     `json:"name"`
	Status      string     `gorm:"default:'pending';index" json:"status"` // pending, processing, completed, failed
	Advanced    bool       `gorm:"default:false" json:"advanced"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	LastError   string     `json:"last_error"`

	// Results
	TotalCount      int `gorm:"default:0" json:"total_count"`
	ValidCount      int `gorm:"default:0" json:"valid_count"`
	InvalidCount    int `gorm:"default:0" json:"invalid_count"`
	DisposableCount int `gorm:"default:0" json:"disposable_count"`
	CatchAllCount   int `gorm:"default:0" json:"catch_all_count"`
	UnknownCount    int `gorm:"default:0" json:"unknown_count"`
	ErrorCount      int `gorm:"default:0" json:"error_count"`

	// Relations
	Items []VerificationItem `gorm:"foreignKey:JobID" json:"items"`
}

// VerificationItem stores one address's result inside a job.
type VerificationItem struct {
	gorm.Model
	JobID uint   `gorm:"not null;index" json:"job_id"`
	Email string `gorm:"not null" json:"email"`

	Status          string `gorm:"default:'pending'" json:"status"` // pending, done
	Deliverability  string `json:"deliverability"`                  // deliverable, risky, undeliverable, unknown
	ConfidenceScore int    `gorm:"default:0" json:"confidence_score"`
	Tier            string `json:"tier"`
	IsCatchAll      bool   `gorm:"default:false" json:"is_catch_all"`
	Reason          string `json:"reason"`
	Details         string `gorm:"type:text" json:"details"` // JSON with the full check breakdown
}

// EmailRecord is the long-lived per-address history that feeds risk scoring.
type EmailRecord struct {
	gorm.Model
	Email  string `gorm:"not null;uniqueIndex" json:"email"`
	Domain string `gorm:"index" json:"domain"`

	SyntaxValid     bool `gorm:"default:false" json:"syntax_valid"`
	DNSValid        bool `gorm:"default:false" json:"dns_valid"`
	HasMX           bool `gorm:"default:false" json:"has_mx"`
	IsCatchAll      bool `gorm:"default:false" json:"is_catch_all"`
	IsDisposable    bool `gorm:"default:false" json:"is_disposable"`
	IsRoleBased     bool `gorm:"default:false" json:"is_role_based"`
	ConfidenceScore int  `gorm:"default:0" json:"confidence_score"`

	BounceCount     int        `gorm:"default:0" json:"bounce_count"`
	HardBounceCount int        `gorm:"default:0" json:"hard_bounce_count"`
	LastBounceDate  *time.Time `json:"last_bounce_date"`
	LastVerifiedAt  *time.Time `json:"last_verified_at"`
}

// Bounce represents one delivery failure reported by an upstream sender.
type Bounce struct {
	gorm.Model
	Email string `gorm:"not null;index" json:"email"`

	Type           string `gorm:"not null" json:"type"` // hard, soft, block
	Code           string `json:"code"`
	Message        string `json:"message"`
	DiagnosticCode string `json:"diagnostic_code"`
}
