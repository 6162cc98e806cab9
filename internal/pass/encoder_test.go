package pass_test

import (
	"bytes"
	"encoding/json"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass-backend/internal/domain"
	"gatepass-backend/internal/pass"
)

func testPass() *domain.VisitPass {
	return &domain.VisitPass{
		ID:           "visit-123",
		VisitorName:  "John Doe",
		ResidentName: "Sarah Wilson",
		Phone:        "555-0100",
		Purpose:      "Delivery",
		VisitDate:    "2024-02-20",
		VisitTime:    "10:30",
		Status:       domain.VisitStatusPending,
		CreatedAt:    time.Date(2024, 2, 19, 15, 4, 5, 0, time.UTC),
	}
}

func TestEncode_ClaimShape(t *testing.T) {
	payload, err := pass.Encode(testPass())
	require.NoError(t, err)

	// Exactly the four claim fields, nothing personally identifying.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Len(t, raw, 4)
	assert.Equal(t, "visit-123", raw["visitId"])
	assert.Equal(t, "2024-02-20", raw["visitDate"])
	assert.Equal(t, "Delivery", raw["purpose"])
	assert.Equal(t, "2024-02-19T15:04:05Z", raw["issuedAt"])
	assert.NotContains(t, string(payload), "555-0100")
	assert.NotContains(t, string(payload), "John Doe")
	assert.NotContains(t, string(payload), "Sarah Wilson")
}

func TestEncode_RequiresID(t *testing.T) {
	p := testPass()
	p.ID = ""
	_, err := pass.Encode(p)
	assert.Error(t, err)
}

func TestDecodeClaim_RoundTrip(t *testing.T) {
	payload, err := pass.Encode(testPass())
	require.NoError(t, err)

	claim, err := pass.DecodeClaim(payload)
	require.NoError(t, err)
	assert.Equal(t, "visit-123", claim.VisitID)
	assert.Equal(t, "2024-02-20", claim.VisitDate)
	assert.Equal(t, "Delivery", claim.Purpose)
	assert.Equal(t, "2024-02-19T15:04:05Z", claim.IssuedAt)
}

func TestDecodeClaim_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":      "not-a-claim",
		"empty object":  "{}",
		"missing id":    `{"visitDate":"2024-02-20","purpose":"x","issuedAt":"2024-02-19T15:04:05Z"}`,
		"bad date":      `{"visitId":"v1","visitDate":"Feb 20","purpose":"x","issuedAt":"2024-02-19T15:04:05Z"}`,
		"extra field":   `{"visitId":"v1","visitDate":"2024-02-20","purpose":"x","issuedAt":"t","phone":"555-0100"}`,
		"wrong type":    `{"visitId":1,"visitDate":"2024-02-20","purpose":"x","issuedAt":"t"}`,
		"empty payload": "",
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := pass.DecodeClaim([]byte(payload))
			assert.Error(t, err)
		})
	}
}

func TestRender_ProducesPNG(t *testing.T) {
	payload, err := pass.Encode(testPass())
	require.NoError(t, err)

	imgBytes, err := pass.Render(payload)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(imgBytes))
	require.NoError(t, err)
	assert.Equal(t, pass.RenderSize, img.Bounds().Dx())
	assert.Equal(t, pass.RenderSize, img.Bounds().Dy())
}

func TestRender_TooLargePayload(t *testing.T) {
	// QR capacity tops out around 3KB; a larger payload must fail with an
	// encoding error rather than a panic or a silent truncation.
	big := bytes.Repeat([]byte("x"), 8000)
	_, err := pass.Render(big)
	require.Error(t, err)
	var encErr *domain.EncodingError
	assert.ErrorAs(t, err, &encErr)
}
