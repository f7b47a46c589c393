package store

import "time"

// DismissedPRModel is the GORM model for dismissed PR identities
type DismissedPRModel struct {
	PRID      int64 `gorm:"primaryKey"`
	CreatedAt time.Time
}

// TableName specifies the table name for GORM
func (DismissedPRModel) TableName() string { return "dismissed_prs" }

// SnoozedPRModel is the GORM model for snoozed PR identities with expiry
type SnoozedPRModel struct {
	PRID      int64     `gorm:"primaryKey"`
	Until     time.Time `gorm:"not null;index:idx_snoozed_until"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (SnoozedPRModel) TableName() string { return "snoozed_prs" }

// SeenReviewModel is the GORM model for already-notified review ids.
// Keyed by the remote review's own identifier, not the PR's.
type SeenReviewModel struct {
	ReviewID  string `gorm:"primaryKey"`
	CreatedAt time.Time
}

// TableName specifies the table name for GORM
func (SeenReviewModel) TableName() string { return "seen_reviews" }

// SeenReviewRequestModel is the GORM model for already-notified review
// requests, keyed by PR identity
type SeenReviewRequestModel struct {
	PRID      int64 `gorm:"primaryKey"`
	CreatedAt time.Time
}

// TableName specifies the table name for GORM
func (SeenReviewRequestModel) TableName() string { return "seen_review_requests" }

// TabFiltersModel persists the filter state per view/tab as JSON
type TabFiltersModel struct {
	Tab       string `gorm:"primaryKey"`
	Filters   string `gorm:"not null;default:''"`
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (TabFiltersModel) TableName() string { return "tab_filters" }
