package postgres

import (
	"strings"
	"time"

	"github.com/coachline/coachline/pkg/coach"
)

type TranscriptSegment struct {
	ID         string  `gorm:"primaryKey"`
	CallID     string  `gorm:"not null;index"`
	Speaker    string  `gorm:"not null"`
	Text       string  `gorm:"not null"`
	Confidence float64 `gorm:"default:0"`
	StartTime  float64
	EndTime    float64
	Seq        int64 `gorm:"autoIncrement;index"`
	CreatedAt  time.Time
}

type ChecklistItem struct {
	ID                string `gorm:"primaryKey"`
	Question          string `gorm:"not null"`
	Required          bool   `gorm:"default:false"`
	TriggerKeywords   string // comma-separated
	SuggestedResponse string
	Active            bool `gorm:"default:true;index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type CoverageStatus struct {
	CallID       string `gorm:"primaryKey"`
	ItemID       string `gorm:"primaryKey"`
	Covered      bool   `gorm:"default:false"`
	DetectedText string
	UpdatedAt    time.Time
}

type CoachingPrompt struct {
	ID           string `gorm:"primaryKey"`
	CallID       string `gorm:"not null;index"`
	Type         string `gorm:"not null"`
	Message      string `gorm:"not null"`
	ItemID       string `gorm:"index"`
	TriggerText  string
	Acknowledged bool `gorm:"default:false;index"`
	CreatedAt    time.Time
}

func (m TranscriptSegment) toDomain() coach.TranscriptSegment {
	return coach.TranscriptSegment{
		ID:         m.ID,
		CallID:     m.CallID,
		Speaker:    coach.Speaker(m.Speaker),
		Text:       m.Text,
		Confidence: m.Confidence,
		StartTime:  m.StartTime,
		EndTime:    m.EndTime,
		CreatedAt:  m.CreatedAt,
	}
}

func (m ChecklistItem) toDomain() coach.ChecklistItem {
	var keywords []string
	for _, k := range strings.Split(m.TriggerKeywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return coach.ChecklistItem{
		ID:                m.ID,
		Question:          m.Question,
		Required:          m.Required,
		TriggerKeywords:   keywords,
		SuggestedResponse: m.SuggestedResponse,
		Active:            m.Active,
	}
}

func (m CoverageStatus) toDomain() coach.CoverageStatus {
	return coach.CoverageStatus{
		CallID:       m.CallID,
		ItemID:       m.ItemID,
		Covered:      m.Covered,
		DetectedText: m.DetectedText,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (m CoachingPrompt) toDomain() coach.CoachingPrompt {
	return coach.CoachingPrompt{
		ID:           m.ID,
		CallID:       m.CallID,
		Type:         coach.PromptType(m.Type),
		Message:      m.Message,
		ItemID:       m.ItemID,
		TriggerText:  m.TriggerText,
		Acknowledged: m.Acknowledged,
		CreatedAt:    m.CreatedAt,
	}
}
