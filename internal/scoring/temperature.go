package scoring

// Temperature is the follow-up priority tier derived from a total score.
type Temperature string

const (
	TemperatureHot       Temperature = "hot"
	TemperatureWarm      Temperature = "warm"
	TemperatureQualified Temperature = "qualified"
	TemperatureCool      Temperature = "cool"
	TemperatureEarly     Temperature = "early"
)

var ladder = []struct {
	min  int
	tier Temperature
}{
	{80, TemperatureHot},
	{60, TemperatureWarm},
	{40, TemperatureQualified},
	{20, TemperatureCool},
}

// TemperatureFor maps a total onto the tier ladder. Lower bounds are
// inclusive.
func TemperatureFor(total int) Temperature {
	for _, step := range ladder {
		if total >= step.min {
			return step.tier
		}
	}
	return TemperatureEarly
}

// Valid reports whether t is a known tier.
func (t Temperature) Valid() bool {
	switch t {
	case TemperatureHot, TemperatureWarm, TemperatureQualified, TemperatureCool, TemperatureEarly:
		return true
	}
	return false
}
