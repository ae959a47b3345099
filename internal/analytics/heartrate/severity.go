package heartrate

import "github.com/sensacare/vitals/internal/models"

// MaxSeverity caps SeverityScore.
const MaxSeverity = 10

// severityWeights apply once per category present. Reserved categories keep
// their weight so a rule registered for them scores immediately.
var severityWeights = map[AbnormalityType]int{
	Tachycardia:              3,
	Bradycardia:              3,
	IrregularRhythm:          4,
	SustainedElevated:        5,
	HeartBlock:               7,
	NocturnalTachycardia:     4,
	SuddenChange:             2,
	ExerciseTachycardia:      0,
	ChronotropicIncompetence: 0,
}

// SeverityWeight returns the score contribution of category t.
func SeverityWeight(t AbnormalityType) int {
	return severityWeights[t]
}

// SeverityScore sums category weights and a frequency bonus on the total
// number of flagged readings, capped at MaxSeverity. No categories scores 0.
func SeverityScore(abnormalities map[AbnormalityType][]models.VitalReading) int {
	var score, total, present int
	for t, list := range abnormalities {
		if len(list) == 0 {
			continue
		}
		present++
		total += len(list)
		score += severityWeights[t]
	}
	if present == 0 {
		return 0
	}

	switch {
	case total > 50:
		score += 5
	case total > 20:
		score += 3
	case total > 10:
		score += 2
	default:
		score++
	}

	if score > MaxSeverity {
		return MaxSeverity
	}
	return score
}
