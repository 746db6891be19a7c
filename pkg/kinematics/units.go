package kinematics

const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

var ValidUnits = []string{MPS, MPH, KMPH, KPH}

//ConvertSpeed converts meters per second to unit. Unknown units stay in m/s
func ConvertSpeed(mps float64, unit string) float64 {
	switch unit {
	case MPH:
		return mps * 2.23694
	case KMPH, KPH:
		return mps * 3.6
	default:
		return mps
	}
}
