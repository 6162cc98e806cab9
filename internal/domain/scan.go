package domain

import "time"

// ScanStatus is the checkpoint-facing outcome of validating a scanned pass.
// It is distinct from VisitStatus: a replay scan yields ScanStatusUsed while
// the record itself stays "used" untouched.
type ScanStatus string

const (
	ScanStatusApproved ScanStatus = "approved"
	ScanStatusUsed     ScanStatus = "used"
	ScanStatusExpired  ScanStatus = "expired"
	ScanStatusDeclined ScanStatus = "declined"
)

// ScanResult is what a checkpoint displays after a scan. Reason is a
// human-readable string suitable for direct display. Visitor is populated
// when a record was found (approved and replay outcomes); UsedAt carries the
// original use time on replays for audit.
type ScanResult struct {
	Status  ScanStatus `json:"status"`
	Reason  string     `json:"reason"`
	Visitor *VisitPass `json:"visitor,omitempty"`
	UsedAt  *time.Time `json:"used_at,omitempty"`
}
