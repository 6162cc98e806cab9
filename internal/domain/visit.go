package domain

import "time"

// VisitDateLayout is the calendar-date format used everywhere a visit date
// travels as a string: the entity, the scan payload, API query parameters.
const VisitDateLayout = "2006-01-02"

type VisitStatus string

const (
	VisitStatusPending  VisitStatus = "pending"
	VisitStatusUsed     VisitStatus = "used"
	VisitStatusExpired  VisitStatus = "expired"
	VisitStatusDeclined VisitStatus = "declined"
)

// VisitPass is a single visitor authorization scoped to one calendar date.
// All fields except Status and UsedAt are immutable after creation; status
// transitions are one-way out of pending and only the validator (or the
// expiry sweep) performs them.
type VisitPass struct {
	ID           string      `json:"id"`
	VisitorName  string      `json:"visitor_name"`
	ResidentName string      `json:"resident_name"`
	Phone        string      `json:"phone"`
	Purpose      string      `json:"purpose"`
	VisitDate    string      `json:"visit_date"`
	VisitTime    string      `json:"visit_time"`
	NotifyEmail  string      `json:"notify_email,omitempty"`
	Status       VisitStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UsedAt       *time.Time  `json:"used_at,omitempty"`
}
