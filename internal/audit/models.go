package audit

import "time"

// MaxEntries bounds the retained log; the oldest entries are evicted first.
const MaxEntries = 100

// Action names the kind of state change being recorded.
type Action string

const (
	ActionNewApplication   Action = "NEW_APPLICATION"
	ActionStatusUpdate     Action = "STATUS_UPDATE"
	ActionExamSubmission   Action = "EXAM_SUBMISSION"
	ActionInterviewBooking Action = "INTERVIEW_BOOKING"
	ActionVerification     Action = "VERIFICATION"
	ActionAddComment       Action = "ADD_COMMENT"
	ActionAddAdmin         Action = "ADD_ADMIN"
	ActionRemoveAdmin      Action = "REMOVE_ADMIN"
	ActionLogin            Action = "LOGIN"
	ActionUpdateExam       Action = "UPDATE_EXAM"
	ActionUpdateInterview  Action = "UPDATE_INTERVIEW"
	ActionUpdateConfig     Action = "UPDATE_CONFIG"
	ActionSystemReset      Action = "SYSTEM_RESET"
	ActionDataExport       Action = "DATA_EXPORT"
)

// Entry is one persisted log line. Field names match the stored format.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	User      string    `json:"user"`
	Details   string    `json:"details"`
}

// Prepend returns entries with e in front, truncated to MaxEntries.
func Prepend(entries []Entry, e Entry) []Entry {
	out := make([]Entry, 0, min(len(entries)+1, MaxEntries))
	out = append(out, e)
	for _, existing := range entries {
		if len(out) == MaxEntries {
			break
		}
		out = append(out, existing)
	}
	return out
}
