package labels

import (
	"strings"
	"sync"
	"testing"
)

func TestSegment(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "pascal words", in: "BatteryStateOfCharge", want: "Battery State Of Charge"},
		{name: "leading acronym", in: "ACInputVoltage", want: "AC Input Voltage"},
		{name: "inner acronym", in: "TotalACOutputActivePower", want: "Total AC Output Active Power"},
		{name: "empty", in: "", want: ""},
		{name: "lowercase", in: "abc", want: "abc"},
		{name: "uppercase", in: "ABC", want: "ABC"},
		{name: "single upper", in: "A", want: "A"},
		{name: "single lower", in: "a", want: "a"},
		{name: "camel", in: "batteryVoltage", want: "battery Voltage"},
		{name: "trailing acronym", in: "BatteryPV", want: "Battery PV"},
		{name: "trailing acronym run stays fused", in: "InputACPV", want: "Input ACPV"},
		{name: "acronym only followed by word", in: "MPPTMode", want: "MPPT Mode"},
		{name: "two acronyms", in: "PVToACRatio", want: "PV To AC Ratio"},
		{name: "upper then lower", in: "Ab", want: "Ab"},
		{name: "inverter status field", in: "MaxACChargingCurrentSet", want: "Max AC Charging Current Set"},
		{name: "percentage field", in: "PercentageOfNominalOutputPower", want: "Percentage Of Nominal Output Power"},
		{name: "digits are not boundaries", in: "PV1InputVoltage", want: "PV1Input Voltage"},
		{name: "underscore passes through", in: "battery_Voltage", want: "battery_Voltage"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Segment(tc.in); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestSegmentAlreadySpacedIsUnchanged(t *testing.T) {
	inputs := []string{
		"Battery State Of Charge",
		"AC Input Voltage",
		"Total AC Output Active Power",
		"Input ACPV",
	}
	for _, in := range inputs {
		if got := Segment(in); got != in {
			t.Fatalf("expected %q unchanged, got %q", in, got)
		}
	}
}

func TestSegmentIsIdempotent(t *testing.T) {
	for _, in := range propertyInputs() {
		once := Segment(in)
		twice := Segment(once)
		if once != twice {
			t.Fatalf("segment(%q): expected %q on re-application, got %q", in, once, twice)
		}
	}
}

func TestSegmentPreservesCharacters(t *testing.T) {
	for _, in := range propertyInputs() {
		got := Segment(in)
		if stripped := strings.ReplaceAll(got, " ", ""); stripped != in {
			t.Fatalf("segment(%q) = %q: expected %q after removing spaces, got %q", in, got, in, stripped)
		}
		if len(got) < len(in) {
			t.Fatalf("segment(%q) shrank to %q", in, got)
		}
		if (len(got) == len(in)) != (got == in) {
			t.Fatalf("segment(%q) = %q: equal length must mean no boundary", in, got)
		}
		if in != "" && (strings.HasPrefix(got, " ") || strings.HasSuffix(got, " ")) {
			t.Fatalf("segment(%q) = %q: boundary at string edge", in, got)
		}
		if strings.Contains(got, "  ") {
			t.Fatalf("segment(%q) = %q: double boundary", in, got)
		}
	}
}

func TestSegmentConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if got := Segment("TotalACOutputActivePower"); got != "Total AC Output Active Power" {
					t.Errorf("unexpected label %q", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

// propertyInputs covers every identifier of length <= 4 over {a, b, A, B}
// plus the inverter record keys.
func propertyInputs() []string {
	inputs := []string{
		"InverterNumber", "OtherUnits", "SerialNumber", "OperationMode", "FaultCode",
		"ACInputVoltage", "ACInputFrequency", "ACOutputVoltage", "ACOutputFrequency",
		"ACOutputApparentPower", "ACOutputActivePower", "PercentageOfNominalOutputPower",
		"BatteryVoltage", "BatteryChargingCurrent", "BatteryStateOfCharge", "PVInputVoltage",
		"TotalChargingCurrent", "TotalACOutputApparentPower", "TotalACOutputActivePower",
		"TotalPercentageOfNominalOutputPower", "InverterStatus", "MPPT", "ACCharging",
		"SolarCharging", "BatteryStatus", "ACInput", "ACOutput", "Reserved", "ACOutputMode",
		"BatteryChargerSourcePriority", "MaxChargingCurrentSet", "MaxChargingCurrentPossible",
		"MaxACChargingCurrentSet", "PVInputCurrent", "BatteryDischargeCurrent", "Checksum",
	}
	alphabet := []byte{'a', 'b', 'A', 'B'}
	var build func(prefix []byte)
	build = func(prefix []byte) {
		inputs = append(inputs, string(prefix))
		if len(prefix) == 4 {
			return
		}
		for _, c := range alphabet {
			build(append(append([]byte(nil), prefix...), c))
		}
	}
	build(nil)
	return inputs
}

func BenchmarkSegment(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Segment("TotalPercentageOfNominalOutputPower")
	}
}
