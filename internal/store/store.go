package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/gstamp/github-review-manager/internal/filter"
	"github.com/gstamp/github-review-manager/internal/github"
)

// Store is the durable opinion about which PRs are dismissed, snoozed
// (with expiry) or already notified-about. All state is local and
// rebuildable from the remote source of truth, except the seen sets,
// which only grow.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Verify interface compliance at compile time
var _ github.SeenStore = (*Store)(nil)

// gormLogger bridges GORM logging onto slog
type gormLogger struct {
	logger *slog.Logger
	level  logger.LogLevel
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{logger: l.logger, level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		l.logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		l.logger.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level < logger.Info {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l.logger.Error("gorm query error", "error", err, "duration", elapsed, "sql", sql, "rows", rows)
	} else {
		l.logger.Debug("gorm query", "duration", elapsed, "sql", sql, "rows", rows)
	}
}

// New opens (or creates) the state database and migrates its schema.
func New(dbPath string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  &gormLogger{logger: log, level: logger.Warn},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	// WAL keeps reads cheap while the watch loop writes seen markers.
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.AutoMigrate(
		&DismissedPRModel{},
		&SnoozedPRModel{},
		&SeenReviewModel{},
		&SeenReviewRequestModel{},
		&TabFiltersModel{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate state schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying database handle
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Dismiss marks a PR identity dismissed. Idempotent.
func (s *Store) Dismiss(prID int64) error {
	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&DismissedPRModel{PRID: prID}).Error
	if isConstraintViolation(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to dismiss PR %d: %w", prID, err)
	}
	return nil
}

// Undismiss removes a PR identity from the dismissed set. No-op when
// the PR is not dismissed.
func (s *Store) Undismiss(prID int64) error {
	if err := s.db.Delete(&DismissedPRModel{}, "pr_id = ?", prID).Error; err != nil {
		return fmt.Errorf("failed to undismiss PR %d: %w", prID, err)
	}
	return nil
}

// IsDismissed reports whether the PR identity is dismissed
func (s *Store) IsDismissed(prID int64) (bool, error) {
	var count int64
	if err := s.db.Model(&DismissedPRModel{}).Where("pr_id = ?", prID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check dismissed state: %w", err)
	}
	return count > 0, nil
}

// DismissedIDs returns the dismissed set for O(1) lookups
func (s *Store) DismissedIDs() (map[int64]struct{}, error) {
	var rows []DismissedPRModel
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list dismissed PRs: %w", err)
	}
	ids := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		ids[row.PRID] = struct{}{}
	}
	return ids, nil
}

// Snooze suppresses a PR until the given time. Expired entries are
// pruned on every read and write, so a lapsed snooze disappears without
// a background timer.
func (s *Store) Snooze(prID int64, until time.Time) error {
	s.pruneExpiredSnoozes()
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pr_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"until", "updated_at"}),
	}).Create(&SnoozedPRModel{PRID: prID, Until: until.UTC()}).Error
	if err != nil {
		return fmt.Errorf("failed to snooze PR %d: %w", prID, err)
	}
	return nil
}

// Unsnooze removes a PR from the snoozed set
func (s *Store) Unsnooze(prID int64) error {
	if err := s.db.Delete(&SnoozedPRModel{}, "pr_id = ?", prID).Error; err != nil {
		return fmt.Errorf("failed to unsnooze PR %d: %w", prID, err)
	}
	return nil
}

// IsSnoozed reports whether the PR identity is currently snoozed
func (s *Store) IsSnoozed(prID int64) (bool, error) {
	s.pruneExpiredSnoozes()
	var count int64
	if err := s.db.Model(&SnoozedPRModel{}).Where("pr_id = ?", prID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check snoozed state: %w", err)
	}
	return count > 0, nil
}

// SnoozedIDs returns the currently snoozed set for O(1) lookups
func (s *Store) SnoozedIDs() (map[int64]struct{}, error) {
	s.pruneExpiredSnoozes()
	var rows []SnoozedPRModel
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list snoozed PRs: %w", err)
	}
	ids := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		ids[row.PRID] = struct{}{}
	}
	return ids, nil
}

func (s *Store) pruneExpiredSnoozes() {
	if err := s.db.Delete(&SnoozedPRModel{}, "until <= ?", s.now().UTC()).Error; err != nil {
		// Pruning failure leaves stale rows behind; the next call
		// retries.
		return
	}
}

// MarkReviewSeen records a review id as notified-about. Idempotent.
func (s *Store) MarkReviewSeen(reviewID string) error {
	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&SeenReviewModel{ReviewID: reviewID}).Error
	if isConstraintViolation(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to mark review %s seen: %w", reviewID, err)
	}
	return nil
}

// HasSeenReview reports whether the review id was already notified-about
func (s *Store) HasSeenReview(reviewID string) (bool, error) {
	var count int64
	if err := s.db.Model(&SeenReviewModel{}).Where("review_id = ?", reviewID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check seen review: %w", err)
	}
	return count > 0, nil
}

// MarkReviewRequestSeen records a review request as notified-about,
// keyed by PR identity. Idempotent.
func (s *Store) MarkReviewRequestSeen(prID int64) error {
	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&SeenReviewRequestModel{PRID: prID}).Error
	if isConstraintViolation(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to mark review request %d seen: %w", prID, err)
	}
	return nil
}

// HasSeenReviewRequest reports whether the PR's review request was
// already notified-about
func (s *Store) HasSeenReviewRequest(prID int64) (bool, error) {
	var count int64
	if err := s.db.Model(&SeenReviewRequestModel{}).Where("pr_id = ?", prID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check seen review request: %w", err)
	}
	return count > 0, nil
}

// FilterDismissed returns the subset of prs excluding dismissed members
func (s *Store) FilterDismissed(prs []github.PullRequest) ([]github.PullRequest, error) {
	dismissed, err := s.DismissedIDs()
	if err != nil {
		return nil, err
	}
	return excludeIDs(prs, dismissed), nil
}

// FilterSnoozed returns the subset of prs excluding snoozed members
func (s *Store) FilterSnoozed(prs []github.PullRequest) ([]github.PullRequest, error) {
	snoozed, err := s.SnoozedIDs()
	if err != nil {
		return nil, err
	}
	return excludeIDs(prs, snoozed), nil
}

func excludeIDs(prs []github.PullRequest, ids map[int64]struct{}) []github.PullRequest {
	out := make([]github.PullRequest, 0, len(prs))
	for _, pr := range prs {
		if _, ok := ids[pr.ID]; ok {
			continue
		}
		out = append(out, pr)
	}
	return out
}

// SaveTabFilters persists the filter state for a view/tab
func (s *Store) SaveTabFilters(tab string, state filter.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal filter state: %w", err)
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tab"}},
		DoUpdates: clause.AssignmentColumns([]string{"filters", "updated_at"}),
	}).Create(&TabFiltersModel{Tab: tab, Filters: string(data)}).Error
	if err != nil {
		return fmt.Errorf("failed to save filters for tab %s: %w", tab, err)
	}
	return nil
}

// LoadTabFilters returns the persisted filter state for a view/tab, or
// the default state when none was saved yet.
func (s *Store) LoadTabFilters(tab string) (filter.State, error) {
	var row TabFiltersModel
	err := s.db.First(&row, "tab = ?", tab).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return filter.NewState(), nil
	}
	if err != nil {
		return filter.State{}, fmt.Errorf("failed to load filters for tab %s: %w", tab, err)
	}

	var state filter.State
	if err := json.Unmarshal([]byte(row.Filters), &state); err != nil {
		return filter.State{}, fmt.Errorf("failed to unmarshal filter state: %w", err)
	}
	if state.Active == nil {
		state.Active = make(map[filter.Filter]bool)
	}
	return state, nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
