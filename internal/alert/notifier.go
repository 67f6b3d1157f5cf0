package alert

import (
	"context"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
)

// Event is one identification alert bound for the tenant
type Event struct {
	Type      string           `json:"type"`
	UserID    int64            `json:"user_id"`
	CameraID  int64            `json:"camera_id"`
	PersonID  int64            `json:"person_id"`
	RiskLevel domain.RiskLevel `json:"risk_level"`
	SeenCount int              `json:"seen_count"`
	Timestamp time.Time        `json:"timestamp"`
}

const (
	EventHighRisk        = "person.high_risk_detected"
	EventFrequentNormal  = "person.frequent_visitor"
	EventFrequentUnknown = "person.frequent_unknown"
)

// Notifier delivers identification alerts. Implementations must tolerate
// being called from the identification hot path; slow transports should
// queue internally.
type Notifier interface {
	HighRisk(ctx context.Context, ev Event)
	FrequentNormal(ctx context.Context, ev Event)
	FrequentUnknown(ctx context.Context, ev Event)
}

// LogNotifier writes alerts to the structured log. It is the fallback when
// no webhook is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) HighRisk(ctx context.Context, ev Event) {
	n.logger.Warn("high risk person detected",
		"user_id", ev.UserID, "camera_id", ev.CameraID,
		"person_id", ev.PersonID, "risk_level", ev.RiskLevel)
}

func (n *LogNotifier) FrequentNormal(ctx context.Context, ev Event) {
	n.logger.Info("frequent visitor",
		"user_id", ev.UserID, "camera_id", ev.CameraID,
		"person_id", ev.PersonID, "seen_count", ev.SeenCount)
}

func (n *LogNotifier) FrequentUnknown(ctx context.Context, ev Event) {
	n.logger.Warn("unidentified person seen repeatedly",
		"user_id", ev.UserID, "camera_id", ev.CameraID,
		"person_id", ev.PersonID, "seen_count", ev.SeenCount)
}

var _ Notifier = (*LogNotifier)(nil)
