package heartrate

import (
	"fmt"
	"sort"
	"time"

	"github.com/sensacare/vitals/internal/models"
)

// AbnormalityType is a detection category.
type AbnormalityType string

const (
	Tachycardia              AbnormalityType = "TACHYCARDIA"
	Bradycardia              AbnormalityType = "BRADYCARDIA"
	ExerciseTachycardia      AbnormalityType = "EXERCISE_TACHYCARDIA"
	IrregularRhythm          AbnormalityType = "IRREGULAR_RHYTHM"
	SustainedElevated        AbnormalityType = "SUSTAINED_ELEVATED"
	SuddenChange             AbnormalityType = "SUDDEN_CHANGE"
	HeartBlock               AbnormalityType = "HEART_BLOCK"
	NocturnalTachycardia     AbnormalityType = "NOCTURNAL_TACHYCARDIA"
	ChronotropicIncompetence AbnormalityType = "CHRONOTROPIC_INCOMPETENCE"
)

// AllAbnormalityTypes lists the taxonomy, including categories no rule produces yet.
func AllAbnormalityTypes() []AbnormalityType {
	return []AbnormalityType{
		Tachycardia, Bradycardia, ExerciseTachycardia, IrregularRhythm, SustainedElevated,
		SuddenChange, HeartBlock, NocturnalTachycardia, ChronotropicIncompetence,
	}
}

// AbnormalHeartRateDetection is the result of running every registered rule.
// Abnormalities only contains categories with at least one reading.
type AbnormalHeartRateDetection struct {
	StartDate                time.Time                                 `json:"start_date"`
	EndDate                  time.Time                                 `json:"end_date"`
	Age                      int                                       `json:"age"`
	MaxHeartRate             int                                       `json:"max_heart_rate"`
	Abnormalities            map[AbnormalityType][]models.VitalReading `json:"abnormalities"`
	TotalAbnormalReadings    int                                       `json:"total_abnormal_readings"`
	SeverityScore            int                                       `json:"severity_score"`
	RequiresMedicalAttention bool                                      `json:"requires_medical_attention"`
}

// Count returns the number of readings flagged in category t.
func (d *AbnormalHeartRateDetection) Count(t AbnormalityType) int {
	return len(d.Abnormalities[t])
}

// Has reports whether category t was detected.
func (d *AbnormalHeartRateDetection) Has(t AbnormalityType) bool {
	return d.Count(t) > 0
}

// Counts returns flagged reading counts keyed by category name.
func (d *AbnormalHeartRateDetection) Counts() map[string]int {
	out := make(map[string]int, len(d.Abnormalities))
	for t, list := range d.Abnormalities {
		out[string(t)] = len(list)
	}
	return out
}

// DetectAbnormalities evaluates every registered rule over readings.
// A nil age fails with ErrMissingAge, an out-of-range age with
// ErrInvalidArgument and an empty reading set with ErrInsufficientData.
func (a *Analyzer) DetectAbnormalities(readings []models.VitalReading, age *int, start, end time.Time) (*AbnormalHeartRateDetection, error) {
	if age == nil {
		return nil, fmt.Errorf("%w: abnormality detection requires the user's age", models.ErrMissingAge)
	}
	if err := models.ValidateAge(*age); err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, fmt.Errorf("%w: no readings in window", models.ErrInsufficientData)
	}

	sorted := sortedByTime(readings)
	ctx := RuleContext{MaxHeartRate: MaxHeartRateForAge(*age), Config: a.cfg}

	detection := &AbnormalHeartRateDetection{
		StartDate:     start,
		EndDate:       end,
		Age:           *age,
		MaxHeartRate:  ctx.MaxHeartRate,
		Abnormalities: make(map[AbnormalityType][]models.VitalReading),
	}

	for _, rule := range registeredRules() {
		flagged := rule.Evaluate(sorted, ctx)
		if len(flagged) == 0 {
			continue
		}
		list := make([]models.VitalReading, 0, len(flagged))
		for _, idx := range uniqueSorted(flagged) {
			list = append(list, sorted[idx])
		}
		detection.Abnormalities[rule.Type()] = append(detection.Abnormalities[rule.Type()], list...)
	}

	for _, list := range detection.Abnormalities {
		detection.TotalAbnormalReadings += len(list)
	}
	detection.SeverityScore = SeverityScore(detection.Abnormalities)
	detection.RequiresMedicalAttention = requiresMedicalAttention(detection)
	return detection, nil
}

// requiresMedicalAttention escalates severe detections and persistent resting arrhythmia.
func requiresMedicalAttention(d *AbnormalHeartRateDetection) bool {
	return d.SeverityScore >= 7 ||
		d.Has(SustainedElevated) ||
		d.Count(Tachycardia) > 10 ||
		d.Count(Bradycardia) > 10
}

func uniqueSorted(indices []int) []int {
	sort.Ints(indices)
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if len(out) > 0 && out[len(out)-1] == idx {
			continue
		}
		out = append(out, idx)
	}
	return out
}
