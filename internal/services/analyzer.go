package services

import (
	"time"

	"github.com/sensacare/vitals/internal/analytics/heartrate"
	"github.com/sensacare/vitals/internal/config"
)

// AnalyzerConfig overlays the non-zero analytics settings on the default
// thresholds. loc buckets readings into days; nil keeps UTC.
func AnalyzerConfig(cfg config.AnalyticsConfig, loc *time.Location) heartrate.Config {
	c := heartrate.DefaultConfig()
	if cfg.SampleInterval > 0 {
		c.SampleInterval = cfg.SampleInterval
	}
	if cfg.HRVAdjacencyWindow > 0 {
		c.HRVAdjacencyWindow = cfg.HRVAdjacencyWindow
	}
	if cfg.RecoveryWindow > 0 {
		c.RecoveryWindow = cfg.RecoveryWindow
	}
	if cfg.IrregularWindowSpan > 0 {
		c.IrregularWindowSpan = cfg.IrregularWindowSpan
	}
	if cfg.SuddenChangeWindow > 0 {
		c.SuddenChangeWindow = cfg.SuddenChangeWindow
	}
	if cfg.SustainedMinSpan > 0 {
		c.SustainedMinSpan = cfg.SustainedMinSpan
	}
	if loc != nil {
		c.Location = loc
	}
	return c
}
