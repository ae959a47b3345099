package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sensacare/vitals/internal/analytics/heartrate"
	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertPublisherNotify(t *testing.T) {
	pub := queue.NewMemoryPublisher()
	defer pub.Close()

	p := NewAlertPublisher(logging.Nop(), pub, "alerts")
	p.now = func() time.Time { return baseTime }

	d := &heartrate.AbnormalHeartRateDetection{
		StartDate:                baseTime.Add(-time.Hour),
		EndDate:                  baseTime,
		MaxHeartRate:             190,
		SeverityScore:            8,
		TotalAbnormalReadings:    2,
		RequiresMedicalAttention: true,
		Abnormalities: map[heartrate.AbnormalityType][]models.VitalReading{
			heartrate.SustainedElevated: {reading("a", 0, 120), reading("b", time.Minute, 121)},
		},
	}

	sent, err := p.Notify(context.Background(), "u9", d)
	require.NoError(t, err)
	assert.True(t, sent)

	msgs := pub.Drain("alerts.u9")
	require.Len(t, msgs, 1)

	var event models.AlertEvent
	require.NoError(t, json.Unmarshal(msgs[0], &event))
	assert.NotEmpty(t, event.ID)
	assert.True(t, event.DetectedAt.Equal(baseTime))
	assert.True(t, event.WindowStart.Equal(d.StartDate))
	assert.Equal(t, 2, event.AbnormalReadings)
	assert.Equal(t, 8, event.SeverityScore)
	assert.Equal(t, map[string]int{string(heartrate.SustainedElevated): 2}, event.Categories)
}

func TestAlertPublisherSkips(t *testing.T) {
	pub := queue.NewMemoryPublisher()
	defer pub.Close()
	p := NewAlertPublisher(logging.Nop(), pub, "alerts")

	sent, err := p.Notify(context.Background(), "u1", &heartrate.AbnormalHeartRateDetection{SeverityScore: 2})
	require.NoError(t, err)
	assert.False(t, sent)

	sent, err = p.Notify(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.False(t, sent)

	var nilPublisher *AlertPublisher
	sent, err = nilPublisher.Notify(context.Background(), "u1", &heartrate.AbnormalHeartRateDetection{RequiresMedicalAttention: true})
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Equal(t, 0, pub.Pending("alerts.u1"))
}

func TestAlertPublisherClosed(t *testing.T) {
	pub := queue.NewMemoryPublisher()
	require.NoError(t, pub.Close())
	p := NewAlertPublisher(logging.Nop(), pub, "alerts")

	_, err := p.Notify(context.Background(), "u1", &heartrate.AbnormalHeartRateDetection{RequiresMedicalAttention: true})
	assert.ErrorIs(t, err, queue.ErrPublisherClosed)
}
