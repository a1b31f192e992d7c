package domain

import "time"

// RepairLogStatus describes the technician's progress at the time of a log entry.
type RepairLogStatus string

const (
	RepairLogOngoing   RepairLogStatus = "ONGOING"
	RepairLogCompleted RepairLogStatus = "COMPLETED"
	RepairLogNeedParts RepairLogStatus = "NEED_PARTS"
)

// Valid reports whether s is a known repair log status.
func (s RepairLogStatus) Valid() bool {
	switch s {
	case RepairLogOngoing, RepairLogCompleted, RepairLogNeedParts:
		return true
	}
	return false
}

// RepairLog is an immutable journal entry of technician activity.
type RepairLog struct {
	ID           string
	AssignmentID string
	TechnicianID string
	Description  string
	Action       string
	Status       RepairLogStatus
	TimeSpent    int
	Attachments  []string
	CreatedAt    time.Time
}
