package entity

import (
	"database/sql/driver"
	"time"
)

type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// NormalizeSeverity maps classifier severities onto the stored scale.
// "Critical" collapses to High.
func NormalizeSeverity(s string) Severity {
	switch s {
	case "Low":
		return SeverityLow
	case "Medium":
		return SeverityMedium
	case "High", "Critical":
		return SeverityHigh
	default:
		return SeverityLow
	}
}

type Action string

const (
	ActionKeep   Action = "Keep"
	ActionEdit   Action = "Edit"
	ActionRemove Action = "Remove"
)

// CollapsedViolationType is the single literal type used when the taxonomy
// runs in collapsed mode; the original type moves to the Category field.
const CollapsedViolationType = "Content Violation"

// Finding is one policy concern reported by the classifier for a review.
type Finding struct {
	Type     string   `json:"type"`
	Category string   `json:"category,omitempty"`
	Severity Severity `json:"severity"`
	Benefit  string   `json:"user_benefit,omitempty"`
	Action   Action   `json:"recommended_action"`
	Details  string   `json:"details,omitempty"`
}

type Findings []Finding

func (f Findings) Value() (driver.Value, error) { return valueJSON(f) }
func (f *Findings) Scan(src interface{}) error  { return scanJSON(src, f) }

// ReviewViolation records the classifier findings for one review scan.
// Rows are never deleted; an operator may only set the override fields.
type ReviewViolation struct {
	ID           int64      `db:"id"`
	ReviewID     string     `db:"review_id"`
	ASIN         string     `db:"asin"`
	Findings     Findings   `db:"findings"`
	ScannedAt    time.Time  `db:"scanned_at"`
	Overridden   bool       `db:"overridden"`
	OverriddenBy *string    `db:"overridden_by"`
	OverriddenAt *time.Time `db:"overridden_at"`
}
