package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sensacare/vitals/internal/models"
)

// readCSV parses rows of timestamp,value,hrv,activity,resting. Only the
// first two columns are required; a leading header row is skipped.
func readCSV(r io.Reader, userID string) ([]models.VitalReading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var out []models.VitalReading
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(rec[0], "timestamp") {
			continue
		}

		reading, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		reading.ID = fmt.Sprintf("%s-%d", userID, line)
		reading.UserID = userID
		out = append(out, reading)
	}
}

func parseRow(rec []string) (models.VitalReading, error) {
	var r models.VitalReading
	if len(rec) < 2 {
		return r, fmt.Errorf("expected at least timestamp,value, got %d columns", len(rec))
	}

	ts, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return r, fmt.Errorf("timestamp %q: %w", rec[0], err)
	}
	r.Timestamp = ts

	if r.Value, err = strconv.Atoi(rec[1]); err != nil {
		return r, fmt.Errorf("value %q: %w", rec[1], err)
	}

	if len(rec) > 2 && rec[2] != "" {
		hrv, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return r, fmt.Errorf("hrv %q: %w", rec[2], err)
		}
		r.HRVValue = &hrv
	}
	if len(rec) > 3 {
		r.ActivityLevel = models.ActivityLevel(strings.ToUpper(rec[3]))
	}
	if len(rec) > 4 && rec[4] != "" {
		if r.IsRestingHeartRate, err = strconv.ParseBool(rec[4]); err != nil {
			return r, fmt.Errorf("resting %q: %w", rec[4], err)
		}
	}
	return r, nil
}
