package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sensacare/vitals/internal/analytics/heartrate"
	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/queue"
	"github.com/sensacare/vitals/internal/utils"
)

// AlertPublisher turns detections that need medical attention into
// AlertEvents on <prefix>.<user_id>. A nil *AlertPublisher publishes nothing.
type AlertPublisher struct {
	logger    *logging.Logger
	publisher queue.Publisher
	prefix    string
	now       func() time.Time
}

func NewAlertPublisher(logger *logging.Logger, publisher queue.Publisher, prefix string) *AlertPublisher {
	return &AlertPublisher{
		logger:    logger,
		publisher: publisher,
		prefix:    prefix,
		now:       time.Now,
	}
}

// Notify publishes an event for d when it requires medical attention and
// reports whether one was sent.
func (p *AlertPublisher) Notify(ctx context.Context, userID string, d *heartrate.AbnormalHeartRateDetection) (bool, error) {
	if p == nil || p.publisher == nil || d == nil || !d.RequiresMedicalAttention {
		return false, nil
	}

	event := models.AlertEvent{
		ID:               uuid.NewString(),
		UserID:           userID,
		DetectedAt:       p.now().UTC(),
		WindowStart:      d.StartDate,
		WindowEnd:        d.EndDate,
		SeverityScore:    d.SeverityScore,
		Categories:       d.Counts(),
		AbnormalReadings: d.TotalAbnormalReadings,
		MaxHeartRate:     d.MaxHeartRate,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return false, fmt.Errorf("failed to encode alert: %w", err)
	}

	subject := utils.AlertSubject(p.prefix, userID)
	if err := p.publisher.Publish(ctx, subject, data); err != nil {
		return false, fmt.Errorf("failed to publish alert: %w", err)
	}

	p.logger.Warn("Medical attention alert published",
		"user_id", userID,
		"alert_id", event.ID,
		"severity", event.SeverityScore,
		"subject", subject)
	return true, nil
}
