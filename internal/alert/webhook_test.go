package alert

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
)

func TestSignAndVerify(t *testing.T) {
	payload := []byte(`{"type":"person.high_risk_detected"}`)

	sig := Sign("secret", payload)
	assert.True(t, Verify("secret", payload, sig))
	assert.False(t, Verify("other-secret", payload, sig))
	assert.False(t, Verify("secret", []byte("tampered"), sig))
	assert.False(t, Verify("secret", payload, "sha256=deadbeef"))
}

func TestWebhookNotifier_Deliver(t *testing.T) {
	var gotSig, gotEvent string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Vigia-Signature")
		gotEvent = r.Header.Get("X-Vigia-Event")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, "secret", slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.HighRisk(context.Background(), Event{
		UserID:    42,
		CameraID:  3,
		PersonID:  260830123456,
		RiskLevel: domain.RiskDangerous,
		SeenCount: 8,
	})

	assert.Equal(t, EventHighRisk, gotEvent)
	assert.True(t, Verify("secret", gotBody, gotSig))

	var ev Event
	require.NoError(t, json.Unmarshal(gotBody, &ev))
	assert.Equal(t, EventHighRisk, ev.Type)
	assert.Equal(t, int64(260830123456), ev.PersonID)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestWebhookNotifier_SwallowsDeliveryErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, "secret", slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Must not panic or propagate anything.
	n.FrequentUnknown(context.Background(), Event{PersonID: 1})
}
