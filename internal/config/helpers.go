package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"
)

var offsetPattern = regexp.MustCompile(`^([+-])(\d{2}):(\d{2})$`)

// ServerAddress returns host:port for the HTTP listener.
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.HTTPPort))
}

// IsDevelopment reports a debug console setup.
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// GetStorageTimezone returns the location used to bucket readings by calendar
// day and hour. Accepts IANA names ("Asia/Tokyo") and offsets ("+09:00").
// Empty or unparsable values yield UTC.
func (c *StorageConfig) GetStorageTimezone() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	if loc, err := parseOffsetTimezone(c.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

func parseOffsetTimezone(offset string) (*time.Location, error) {
	m := offsetPattern.FindStringSubmatch(offset)
	if len(m) != 4 {
		return nil, fmt.Errorf("invalid offset format: %s", offset)
	}
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	if hours > 14 || minutes > 59 {
		return nil, fmt.Errorf("offset out of range: %s", offset)
	}
	secs := hours*3600 + minutes*60
	if m[1] == "-" {
		secs = -secs
	}
	return time.FixedZone(offset, secs), nil
}

// LocalDate formats t as YYYY-MM-DD in the storage timezone.
func (c *StorageConfig) LocalDate(t time.Time) string {
	return t.In(c.GetStorageTimezone()).Format("2006-01-02")
}
