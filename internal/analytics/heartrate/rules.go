package heartrate

import (
	"fmt"
	"math"
	"sort"

	"github.com/sensacare/vitals/internal/analytics"
	"github.com/sensacare/vitals/internal/models"
)

// RuleContext carries the per-detection parameters shared by all rules.
type RuleContext struct {
	MaxHeartRate int
	Config       Config
}

// Rule flags readings belonging to one abnormality category.
type Rule interface {
	// Name is the registry key.
	Name() string
	Type() AbnormalityType
	// Evaluate receives readings sorted by timestamp and returns the indices of
	// flagged readings. Duplicates are allowed.
	Evaluate(sorted []models.VitalReading, ctx RuleContext) []int
}

var ruleRegistry = make(map[string]Rule)

// RegisterRule adds a rule to the registry. It is meant to be called from init.
func RegisterRule(rule Rule) {
	ruleRegistry[rule.Name()] = rule
}

// GetRule returns a rule by name
func GetRule(name string) (Rule, error) {
	if rule, ok := ruleRegistry[name]; ok {
		return rule, nil
	}
	return nil, fmt.Errorf("unknown abnormality rule: %s", name)
}

// ListRules returns registered rule names in sorted order.
func ListRules() []string {
	names := make([]string, 0, len(ruleRegistry))
	for name := range ruleRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func registeredRules() []Rule {
	names := ListRules()
	rules := make([]Rule, len(names))
	for i, name := range names {
		rules[i] = ruleRegistry[name]
	}
	return rules
}

func init() {
	RegisterRule(thresholdRule{name: "tachycardia", kind: Tachycardia, high: true})
	RegisterRule(thresholdRule{name: "bradycardia", kind: Bradycardia})
	RegisterRule(exerciseRule{})
	RegisterRule(irregularRule{})
	RegisterRule(sustainedRule{})
	RegisterRule(suddenChangeRule{})
}

// thresholdRule flags resting-context readings at or beyond a fixed bpm.
type thresholdRule struct {
	name string
	kind AbnormalityType
	high bool
}

func (r thresholdRule) Name() string          { return r.name }
func (r thresholdRule) Type() AbnormalityType { return r.kind }

func (r thresholdRule) Evaluate(sorted []models.VitalReading, ctx RuleContext) []int {
	var out []int
	for i, rd := range sorted {
		if !rd.ActivityLevel.AtRest() {
			continue
		}
		if r.high && rd.Value >= ctx.Config.TachycardiaThreshold ||
			!r.high && rd.Value <= ctx.Config.BradycardiaThreshold {
			out = append(out, i)
		}
	}
	return out
}

// exerciseRule flags ACTIVE readings above a fraction of max heart rate.
type exerciseRule struct{}

func (exerciseRule) Name() string          { return "exercise_tachycardia" }
func (exerciseRule) Type() AbnormalityType { return ExerciseTachycardia }

func (exerciseRule) Evaluate(sorted []models.VitalReading, ctx RuleContext) []int {
	limit := ctx.Config.ExerciseMaxFraction * float64(ctx.MaxHeartRate)
	var out []int
	for i, rd := range sorted {
		if rd.ActivityLevel == models.ActivityActive && float64(rd.Value) > limit {
			out = append(out, i)
		}
	}
	return out
}

// irregularRule slides a fixed-size window over consecutive readings and
// flags every member of a window that fits in the span and varies too much.
type irregularRule struct{}

func (irregularRule) Name() string          { return "irregular_rhythm" }
func (irregularRule) Type() AbnormalityType { return IrregularRhythm }

func (irregularRule) Evaluate(sorted []models.VitalReading, ctx RuleContext) []int {
	size := ctx.Config.IrregularWindowSize
	var out []int
	for start := 0; start+size <= len(sorted); start++ {
		window := sorted[start : start+size]
		if window[size-1].Timestamp.Sub(window[0].Timestamp) > ctx.Config.IrregularWindowSpan {
			continue
		}
		if analytics.PopulationStdDev(bpmValues(window)) <= ctx.Config.IrregularStdDevThreshold {
			continue
		}
		for i := range window {
			out = append(out, start+i)
		}
	}
	return out
}

// sustainedRule flags runs of elevated resting-context readings that last
// long enough.
type sustainedRule struct{}

func (sustainedRule) Name() string          { return "sustained_elevated" }
func (sustainedRule) Type() AbnormalityType { return SustainedElevated }

func (sustainedRule) Evaluate(sorted []models.VitalReading, ctx RuleContext) []int {
	elevated := func(rd models.VitalReading) bool {
		return rd.Value >= ctx.Config.TachycardiaThreshold && rd.ActivityLevel.AtRest()
	}

	var out []int
	flush := func(start, end int) {
		if end-start < ctx.Config.SustainedMinReadings {
			return
		}
		if sorted[end-1].Timestamp.Sub(sorted[start].Timestamp) < ctx.Config.SustainedMinSpan {
			return
		}
		for i := start; i < end; i++ {
			out = append(out, i)
		}
	}

	runStart := -1
	for i, rd := range sorted {
		switch {
		case elevated(rd) && runStart < 0:
			runStart = i
		case !elevated(rd) && runStart >= 0:
			flush(runStart, i)
			runStart = -1
		}
	}
	if runStart >= 0 {
		flush(runStart, len(sorted))
	}
	return out
}

// suddenChangeRule flags both readings of a close pair with a large jump.
type suddenChangeRule struct{}

func (suddenChangeRule) Name() string          { return "sudden_change" }
func (suddenChangeRule) Type() AbnormalityType { return SuddenChange }

func (suddenChangeRule) Evaluate(sorted []models.VitalReading, ctx RuleContext) []int {
	var out []int
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.Timestamp.Sub(prev.Timestamp) > ctx.Config.SuddenChangeWindow {
			continue
		}
		if math.Abs(float64(cur.Value-prev.Value)) >= float64(ctx.Config.SuddenChangeDelta) {
			out = append(out, i-1, i)
		}
	}
	return out
}
