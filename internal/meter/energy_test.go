package meter

import "testing"

func TestLatestRegisterWh(t *testing.T) {
	tests := []struct {
		name     string
		readings []Reading
		want     int
		wantOK   bool
	}{
		{name: "no readings"},
		{
			name: "latest register wins",
			readings: []Reading{
				{Measurand: DefaultMeasurand, Value: "100", Unit: "Wh"},
				{Measurand: DefaultMeasurand, Value: "250", Unit: "Wh"},
				{Measurand: "Power.Active.Import", Value: "7000", Unit: "W"},
			},
			want:   250,
			wantOK: true,
		},
		{
			name: "kWh converted",
			readings: []Reading{
				{Measurand: DefaultMeasurand, Value: "1.2345", Unit: "kWh"},
			},
			want:   1235,
			wantOK: true,
		},
		{
			name: "phase samples and garbage skipped",
			readings: []Reading{
				{Measurand: DefaultMeasurand, Value: "500", Unit: "Wh"},
				{Measurand: DefaultMeasurand, Value: "200", Unit: "Wh", Phase: "L1"},
				{Measurand: DefaultMeasurand, Value: "n/a", Unit: "Wh"},
			},
			want:   500,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LatestRegisterWh(tt.readings)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("LatestRegisterWh() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
