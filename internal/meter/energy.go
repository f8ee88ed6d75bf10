package meter

import (
	"math"
	"strconv"
)

const whPerKWh = 1000

// LatestRegisterWh returns the most recent energy register value in Wh
// among readings, which must be ordered oldest first. Non-numeric values,
// other measurands and phase-level samples are skipped.
func LatestRegisterWh(readings []Reading) (int, bool) {
	for i := len(readings) - 1; i >= 0; i-- {
		rd := readings[i]
		if rd.Measurand != DefaultMeasurand || rd.Phase != "" {
			continue
		}
		v, err := strconv.ParseFloat(rd.Value, 64)
		if err != nil {
			continue
		}
		if rd.Unit == "kWh" {
			v *= whPerKWh
		}
		return int(math.Round(v)), true
	}
	return 0, false
}
