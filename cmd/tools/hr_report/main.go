// Command hr_report prints a heart-rate report for a CSV export of readings.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/sensacare/vitals/internal/analytics/heartrate"
	"github.com/sensacare/vitals/internal/config"
	"github.com/sensacare/vitals/internal/models"
	"github.com/sensacare/vitals/internal/queue"
	"github.com/sensacare/vitals/internal/services"
	"github.com/sensacare/vitals/internal/utils"
)

func main() {
	input := flag.String("input", "-", "CSV file (timestamp,value,hrv,activity,resting); - reads stdin")
	userID := flag.String("user", "cli-user", "User ID stamped on readings")
	age := flag.Int("age", 0, "Age in years (required for zones and abnormalities)")
	restingHR := flag.Int("resting-hr", 0, "Resting heart rate for Karvonen zones (optional)")
	timezone := flag.String("timezone", "UTC", "Timezone for daily buckets (IANA name or +09:00)")
	publishType := flag.String("publish-type", "", "Also publish readings to a queue (nats, redis, kafka)")
	publishURL := flag.String("publish-url", "", "Queue URL for -publish-type")
	subject := flag.String("subject", utils.DefaultReadingsSubject, "Subject for published readings")
	flag.Parse()

	readings, err := load(*input, *userID)
	if err != nil {
		log.Fatalf("Error reading input: %v\n", err)
	}
	if len(readings) == 0 {
		log.Fatal("Error: no readings in input")
	}

	var profile *models.UserProfile
	if *age > 0 {
		profile = &models.UserProfile{UserID: *userID, Age: age}
		if *restingHR > 0 {
			profile.RestingHeartRate = restingHR
		}
	}

	storage := config.StorageConfig{Timezone: *timezone}
	cfg := heartrate.DefaultConfig()
	cfg.Location = storage.GetStorageTimezone()
	analyzer := heartrate.NewAnalyzer(cfg)

	w := services.Window{Start: readings[0].Timestamp, End: readings[0].Timestamp}
	for _, r := range readings {
		if r.Timestamp.Before(w.Start) {
			w.Start = r.Timestamp
		}
		if r.Timestamp.After(w.End) {
			w.End = r.Timestamp
		}
	}

	report := services.BuildReport(analyzer, *userID, profile, readings, w)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("Error encoding report: %v\n", err)
	}

	if *publishType != "" {
		n, err := publish(config.QueueConfig{Type: *publishType, URL: *publishURL}, *subject, *userID, readings)
		if err != nil {
			log.Fatalf("Error publishing readings: %v\n", err)
		}
		fmt.Fprintf(os.Stderr, "Published %d batch messages to %s\n", n, *subject)
	}
}

func load(path, userID string) ([]models.VitalReading, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	return readCSV(r, userID)
}

// publishChunk keeps each ReadingBatchMessage well under broker size limits.
const publishChunk = 500

func publish(cfg config.QueueConfig, subject, userID string, readings []models.VitalReading) (int, error) {
	pub, err := queue.NewPublisher(cfg)
	if err != nil {
		return 0, err
	}
	defer func() { _ = pub.Close() }()

	msgs, err := batchMessages(subject, userID, readings, publishChunk)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return pub.PublishBatch(ctx, msgs)
}

func batchMessages(subject, userID string, readings []models.VitalReading, size int) ([]queue.BatchMessage, error) {
	var out []queue.BatchMessage
	for start := 0; start < len(readings); start += size {
		end := min(start+size, len(readings))
		data, err := json.Marshal(models.ReadingBatchMessage{
			UserID:   userID,
			DeviceID: "hr_report",
			Readings: readings[start:end],
		})
		if err != nil {
			return nil, err
		}
		out = append(out, queue.BatchMessage{Subject: subject, Data: data})
	}
	return out, nil
}
