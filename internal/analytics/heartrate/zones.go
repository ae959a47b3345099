package heartrate

import (
	"fmt"

	"github.com/sensacare/vitals/internal/models"
)

// ZoneMethod names the formula used to derive zones.
type ZoneMethod string

const (
	MethodStandard ZoneMethod = "standard"
	MethodKarvonen ZoneMethod = "karvonen"
)

// zoneBoundaries are the intensity percentages separating the five zones.
var zoneBoundaries = [6]int{50, 60, 70, 80, 90, 100}

var zoneNames = [5]string{"Recovery", "Aerobic", "Tempo", "Threshold", "Maximum"}

// Zone is one training band. Lower is inclusive, Upper exclusive except for zone 5.
type Zone struct {
	Number int     `json:"number"`
	Name   string  `json:"name"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// Contains reports whether bpm falls inside the zone.
func (z Zone) Contains(bpm float64) bool {
	if z.Number == len(zoneNames) {
		return bpm >= z.Lower && bpm <= z.Upper
	}
	return bpm >= z.Lower && bpm < z.Upper
}

// HeartRateZones are five contiguous zones for one (age, resting HR) pair.
type HeartRateZones struct {
	Method           ZoneMethod `json:"method"`
	Age              int        `json:"age"`
	MaxHeartRate     int        `json:"max_heart_rate"`
	RestingHeartRate *int       `json:"resting_heart_rate,omitempty"`
	Zones            [5]Zone    `json:"zones"`
}

// Zone returns zone n (1-5).
func (z *HeartRateZones) Zone(n int) (Zone, bool) {
	if n < 1 || n > len(z.Zones) {
		return Zone{}, false
	}
	return z.Zones[n-1], true
}

// ZoneFor returns the zone number containing bpm, or 0 if outside all zones.
func (z *HeartRateZones) ZoneFor(bpm float64) int {
	for _, zone := range z.Zones {
		if zone.Contains(bpm) {
			return zone.Number
		}
	}
	return 0
}

// MaxHeartRateForAge is the age-predicted maximum, 220 - age.
func MaxHeartRateForAge(age int) int {
	return 220 - age
}

// CalculateZones derives zones at 50-100% of the age-predicted max heart rate.
func CalculateZones(age int) (*HeartRateZones, error) {
	if err := models.ValidateAge(age); err != nil {
		return nil, err
	}
	maxHR := MaxHeartRateForAge(age)
	zones := &HeartRateZones{Method: MethodStandard, Age: age, MaxHeartRate: maxHR}
	fillZones(zones, func(pct int) float64 {
		return float64(maxHR*pct) / 100
	})
	return zones, nil
}

// CalculateKarvonenZones derives zones from the heart rate reserve,
// RHR + pct*(maxHR - RHR).
func CalculateKarvonenZones(age, restingHeartRate int) (*HeartRateZones, error) {
	if err := models.ValidateAge(age); err != nil {
		return nil, err
	}
	if err := models.ValidateRestingHeartRate(restingHeartRate); err != nil {
		return nil, err
	}
	maxHR := MaxHeartRateForAge(age)
	if restingHeartRate >= maxHR {
		return nil, fmt.Errorf("%w: resting heart rate %d is not below max heart rate %d",
			models.ErrInvalidArgument, restingHeartRate, maxHR)
	}

	reserve := maxHR - restingHeartRate
	rhr := restingHeartRate
	zones := &HeartRateZones{Method: MethodKarvonen, Age: age, MaxHeartRate: maxHR, RestingHeartRate: &rhr}
	fillZones(zones, func(pct int) float64 {
		return float64(rhr) + float64(reserve*pct)/100
	})
	return zones, nil
}

func fillZones(z *HeartRateZones, boundary func(pct int) float64) {
	for i := range z.Zones {
		z.Zones[i] = Zone{
			Number: i + 1,
			Name:   zoneNames[i],
			Lower:  boundary(zoneBoundaries[i]),
			Upper:  boundary(zoneBoundaries[i+1]),
		}
	}
}
