// Package postgres is the gorm-backed Store implementation.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/coachline/coachline/pkg/coach"
	"github.com/coachline/coachline/pkg/store"
)

type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and returns a migrated store.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	s := NewStore(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&TranscriptSegment{},
		&ChecklistItem{},
		&CoverageStatus{},
		&CoachingPrompt{},
	)
}

func (s *Store) CreateTranscriptSegment(ctx context.Context, seg *coach.TranscriptSegment) error {
	if seg.ID == "" {
		seg.ID = uuid.NewString()
	}
	if seg.CreatedAt.IsZero() {
		seg.CreatedAt = time.Now()
	}
	row := TranscriptSegment{
		ID:         seg.ID,
		CallID:     seg.CallID,
		Speaker:    string(seg.Speaker),
		Text:       seg.Text,
		Confidence: seg.Confidence,
		StartTime:  seg.StartTime,
		EndTime:    seg.EndTime,
		CreatedAt:  seg.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) GetTranscriptSegments(ctx context.Context, callID string) ([]coach.TranscriptSegment, error) {
	var rows []TranscriptSegment
	err := s.db.WithContext(ctx).Where("call_id = ?", callID).Order("seq ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]coach.TranscriptSegment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetChecklistItems(ctx context.Context, activeOnly bool) ([]coach.ChecklistItem, error) {
	var rows []ChecklistItem
	q := s.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]coach.ChecklistItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetCoverageStatus(ctx context.Context, callID string) ([]coach.CoverageStatus, error) {
	var rows []CoverageStatus
	if err := s.db.WithContext(ctx).Where("call_id = ?", callID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]coach.CoverageStatus, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) SetCoverageCovered(ctx context.Context, callID, itemID, detectedText string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing CoverageStatus
		err := tx.Where("call_id = ? AND item_id = ?", callID, itemID).First(&existing).Error
		switch {
		case err == nil:
			if existing.Covered {
				return nil
			}
			return tx.Model(&CoverageStatus{}).
				Where("call_id = ? AND item_id = ?", callID, itemID).
				Updates(map[string]any{
					"covered":       true,
					"detected_text": detectedText,
					"updated_at":    time.Now(),
				}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			row := CoverageStatus{
				CallID:       callID,
				ItemID:       itemID,
				Covered:      true,
				DetectedText: detectedText,
				UpdatedAt:    time.Now(),
			}
			return tx.Create(&row).Error
		default:
			return err
		}
	})
}

func (s *Store) GetOpenPrompts(ctx context.Context, callID string) ([]coach.CoachingPrompt, error) {
	var rows []CoachingPrompt
	err := s.db.WithContext(ctx).
		Where("call_id = ? AND acknowledged = ?", callID, false).
		Order("created_at ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]coach.CoachingPrompt, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) CreatePrompt(ctx context.Context, p *coach.CoachingPrompt) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	row := CoachingPrompt{
		ID:          p.ID,
		CallID:      p.CallID,
		Type:        string(p.Type),
		Message:     p.Message,
		ItemID:      p.ItemID,
		TriggerText: p.TriggerText,
		CreatedAt:   p.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) AcknowledgePrompt(ctx context.Context, promptID string) error {
	result := s.db.WithContext(ctx).Model(&CoachingPrompt{}).
		Where("id = ?", promptID).
		Update("acknowledged", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

var _ store.Store = (*Store)(nil)
