package service

import (
	"context"

	"gatepass-backend/internal/domain"
	"gatepass-backend/internal/repository"
)

// IssueRequest carries organizer-supplied fields for a new pass. NotifyEmail
// is optional; when set, the rendered pass is emailed there after issuance.
type IssueRequest struct {
	VisitorName  string `json:"visitor_name"`
	ResidentName string `json:"resident_name"`
	Phone        string `json:"phone"`
	Purpose      string `json:"purpose"`
	VisitDate    string `json:"visit_date"`
	VisitTime    string `json:"visit_time"`
	NotifyEmail  string `json:"notify_email,omitempty"`
}

type IssuerService interface {
	Issue(ctx context.Context, req IssueRequest) (*domain.VisitPass, error)
}

type ValidatorService interface {
	// Scan validates a scanned payload against the caller-supplied current
	// date and returns one of the four domain outcomes. A non-nil error is a
	// store failure, never an accept or reject.
	Scan(ctx context.Context, payload []byte, today string) (*domain.ScanResult, error)
}

type RosterService interface {
	Get(ctx context.Context, id string) (*domain.VisitPass, error)
	List(ctx context.Context, filter repository.VisitFilter) ([]domain.VisitPass, error)
	Subscribe(ctx context.Context, filter repository.VisitFilter) (<-chan []domain.VisitPass, func(), error)
}

type EmailService interface {
	SendPassIssued(ctx context.Context, to string, visit *domain.VisitPass, qrPNG []byte) error
}
