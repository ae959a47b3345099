// Package ingest stores reading batches that devices publish to the broker.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/sensacare/vitals/internal/logging"
	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/services"
	"github.com/sensacare/vitals/internal/subscriber"
	"github.com/sensacare/vitals/internal/utils"
)

// Stats are cumulative message counters.
type Stats struct {
	Messages  int64 `json:"messages"`
	Malformed int64 `json:"malformed"`
	Accepted  int64 `json:"accepted"`
	Stored    int64 `json:"stored"`
	Rejected  int64 `json:"rejected"`
	Failed    int64 `json:"failed"`
}

// Worker consumes models.ReadingBatchMessage payloads. Malformed payloads
// and batches refused by validation are acked and dropped; storage failures
// are returned so the broker redelivers.
type Worker struct {
	logger     *logging.Logger
	subscriber subscriber.Subscriber
	readings   *services.ReadingService
	subject    string

	ctx    context.Context
	cancel context.CancelFunc

	messages  atomic.Int64
	malformed atomic.Int64
	accepted  atomic.Int64
	stored    atomic.Int64
	rejected  atomic.Int64
	failed    atomic.Int64
}

// NewWorker creates a worker for subject.
func NewWorker(logger *logging.Logger, sub subscriber.Subscriber, readings *services.ReadingService, subject string) (*Worker, error) {
	if sub == nil {
		return nil, fmt.Errorf("subscriber is nil")
	}
	if readings == nil {
		return nil, fmt.Errorf("reading service is nil")
	}
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		logger:     logger,
		subscriber: sub,
		readings:   readings,
		subject:    subject,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start subscribes to the ingest subject.
func (w *Worker) Start() error {
	if err := w.subscriber.Subscribe(w.ctx, w.subject, w.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", w.subject, err)
	}
	w.logger.Info("Ingest worker subscribed", "subject", w.subject)
	return nil
}

// Stop unsubscribes and closes the subscriber.
func (w *Worker) Stop() error {
	w.cancel()

	if err := w.subscriber.Unsubscribe(w.subject); err != nil {
		w.logger.Error("Failed to unsubscribe ingest subject", "error", err)
	}
	if err := w.subscriber.Close(); err != nil {
		w.logger.Error("Failed to close subscriber", "error", err)
		return err
	}
	w.logger.Info("Ingest worker stopped", "messages", w.messages.Load())
	return nil
}

// Stats returns a snapshot of the counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Messages:  w.messages.Load(),
		Malformed: w.malformed.Load(),
		Accepted:  w.accepted.Load(),
		Stored:    w.stored.Load(),
		Rejected:  w.rejected.Load(),
		Failed:    w.failed.Load(),
	}
}

func (w *Worker) handleMessage(ctx context.Context, subject string, data []byte) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	w.messages.Add(1)

	var msg models.ReadingBatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		w.malformed.Add(1)
		w.logger.Warn("Dropping malformed batch message",
			"subject", subject,
			"error", err,
			"data_preview", string(data[:min(200, len(data))]))
		return nil
	}

	writeCtx, cancel := context.WithTimeout(ctx, utils.BatchWriteTimeout)
	defer cancel()

	result, err := w.readings.IngestBatch(writeCtx, msg.UserID, msg.Readings)
	if err != nil {
		if services.IsCode(err, services.CodeStorageFailed) {
			w.failed.Add(1)
			w.logger.Error("Failed to store batch, leaving for redelivery",
				"subject", subject,
				"user_id", msg.UserID,
				"device_id", msg.DeviceID,
				"error", err)
			return err
		}
		w.malformed.Add(1)
		w.logger.Warn("Dropping invalid batch message",
			"subject", subject,
			"user_id", msg.UserID,
			"device_id", msg.DeviceID,
			"error", err)
		return nil
	}

	w.accepted.Add(int64(len(result.Accepted)))
	w.stored.Add(int64(result.Stored))
	w.rejected.Add(int64(len(result.Rejected)))
	if len(result.Rejected) > 0 {
		w.logger.Warn("Batch readings rejected",
			"user_id", msg.UserID,
			"device_id", msg.DeviceID,
			"rejected", len(result.Rejected),
			"first_error", result.Rejected[0].Message)
	}
	return nil
}
