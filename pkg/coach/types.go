package coach

import "time"

// Speaker identifies which side of the call produced an utterance.
type Speaker string

const (
	SpeakerStaff    Speaker = "staff"
	SpeakerCustomer Speaker = "customer"
)

// CallRef pairs the durable call record id with the transport-scoped
// telephony session id. Both are fixed at stream start.
type CallRef struct {
	CallID             string
	TelephonySessionID string
}

// TranscriptSegment is one finalized utterance. Interim results never
// become segments. Immutable once created.
type TranscriptSegment struct {
	ID         string
	CallID     string
	Speaker    Speaker
	Text       string
	Confidence float64
	StartTime  float64 // seconds from stream start
	EndTime    float64
	CreatedAt  time.Time
}

// ChecklistItem is one question a staff member is expected to cover.
// Owned by the checklist store; read-only here.
type ChecklistItem struct {
	ID                string
	Question          string
	Required          bool
	TriggerKeywords   []string
	SuggestedResponse string
	Active            bool
}

// CoverageStatus records whether a checklist item has been discussed on a
// call. Once covered it is never uncovered.
type CoverageStatus struct {
	CallID       string
	ItemID       string
	Covered      bool
	DetectedText string
	UpdatedAt    time.Time
}

// PromptType classifies a coaching prompt.
type PromptType string

const (
	PromptReminder   PromptType = "reminder"
	PromptSuggestion PromptType = "suggestion"
	PromptAlert      PromptType = "alert"
)

// ValidPromptType reports whether t is one of the known prompt types.
func ValidPromptType(t PromptType) bool {
	switch t {
	case PromptReminder, PromptSuggestion, PromptAlert:
		return true
	}
	return false
}

// CoachingPrompt is a live suggestion surfaced to the staff member.
// At most one unacknowledged prompt may exist per (call, checklist item).
type CoachingPrompt struct {
	ID           string
	CallID       string
	Type         PromptType
	Message      string
	ItemID       string // optional checklist item reference
	TriggerText  string
	Acknowledged bool
	CreatedAt    time.Time
}
