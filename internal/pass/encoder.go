package pass

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"gatepass-backend/internal/domain"
)

// RenderSize is the edge length of the rendered pass image in pixels.
const RenderSize = 300

// Claim is the scannable payload. It deliberately carries no
// personally-identifying fields (no phone, no names) so an intercepted pass
// image exposes nothing beyond the visit itself.
type Claim struct {
	VisitID   string `json:"visitId"`
	VisitDate string `json:"visitDate"`
	Purpose   string `json:"purpose"`
	IssuedAt  string `json:"issuedAt"`
}

// Encode serializes the claim set for a pass. Pure function of its input.
func Encode(v *domain.VisitPass) ([]byte, error) {
	if v.ID == "" {
		return nil, fmt.Errorf("cannot encode a pass without an id")
	}
	claim := Claim{
		VisitID:   v.ID,
		VisitDate: v.VisitDate,
		Purpose:   v.Purpose,
		IssuedAt:  v.CreatedAt.UTC().Format(time.RFC3339),
	}
	return json.Marshal(claim)
}

// DecodeClaim parses a scanned payload into the expected four-field shape.
// Unknown fields or a missing visit id or date fail the decode; the caller
// maps that to a declined outcome.
func DecodeClaim(payload []byte) (*Claim, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	var c Claim
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("payload is not a valid claim: %w", err)
	}
	if c.VisitID == "" {
		return nil, fmt.Errorf("payload is missing visitId")
	}
	if _, err := time.Parse(domain.VisitDateLayout, c.VisitDate); err != nil {
		return nil, fmt.Errorf("payload has invalid visitDate %q", c.VisitDate)
	}
	return &c, nil
}

// Render draws the payload as a QR image, dark on light for camera
// legibility. Encoding is fully local; no network service is involved.
func Render(payload []byte) ([]byte, error) {
	q, err := qrcode.New(string(payload), qrcode.Medium)
	if err != nil {
		return nil, &domain.EncodingError{Err: err}
	}
	q.ForegroundColor = color.Black
	q.BackgroundColor = color.White
	png, err := q.PNG(RenderSize)
	if err != nil {
		return nil, &domain.EncodingError{Err: err}
	}
	return png, nil
}
