// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package firmware

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrEmptyOutput is returned when a parser receives blank input, which
// usually means the shell produced no response before the prompt.
var ErrEmptyOutput = errors.New("firmware: empty output")

// ErrUnrecognizedOutput is returned when input is non-empty but
// contains none of the fields the parser knows. Garbled or truncated
// responses land here instead of producing an empty snapshot that
// would be mistaken for a real (changed) state.
var ErrUnrecognizedOutput = errors.New("firmware: unrecognized output")

var (
	statusPowerOnTimeRE = regexp.MustCompile(`(?m)^Power-ON time:\s*(.+)$`)
	statusRTCTimeRE     = regexp.MustCompile(`(?m)^RTC time:\s*(.+)$`)
	statusWorkModeRE    = regexp.MustCompile(`(?m)^Work Mode:\s*(.+)$`)
	statusWorkStateRE   = regexp.MustCompile(`(?m)^Work State:\s*(.+)$`)
	statusLaserStateRE  = regexp.MustCompile(`(?m)^laser State:\s*(.+)$`)
	statusPulseOnRE     = regexp.MustCompile(`(?m)^pulse_on:\s*(\d+)\s*(?:[A-Za-z]+)?\s*$`)
	statusPulseOffRE    = regexp.MustCompile(`(?m)^pulse_off:\s*(\d+)\s*(?:[A-Za-z]+)?\s*$`)
	statusWaveStateRE   = regexp.MustCompile(`(?m)^wave\s+state:\s*(\d+)\s*$`)
	statusIOStateRE     = regexp.MustCompile(`(?m)^IO state:\s*(.+)$`)
	statusIOFlagRE      = regexp.MustCompile(`([A-Z0-9_]+)\((\d+)\)`)
	statusPowerOutRE    = regexp.MustCompile(`(?m)^Power Out:\s*([0-9.]+)%.*?\(\s*([0-9]+)\s*w\),DAC\((\d+)\),state\((\w+)\)\s*$`)
	statusPowerParamRE  = regexp.MustCompile(`(?m)^Power Param:\s*power\(([-+]?\d+(?:\.\d+)?)\),pwm_fre\((\d+)\),pwm_duty\((\d+)\)\s*$`)
	statusPowerDriveRE  = regexp.MustCompile(`(?m)^Power drive:\s*([-+]?\d+(?:\.\d+)?)\s*V,\s*([-+]?\d+(?:\.\d+)?)\s*A\s*$`)
	statusDriveVoltRE   = regexp.MustCompile(`(?m)^Drive volt1~2:\s*(.+)$`)
	statusDriveCurrRE   = regexp.MustCompile(`(?m)^Drive current1~4:\s*(.+)$`)
	statusEnergyRE      = regexp.MustCompile(`(?m)^Energy:\s*state\((\d+)\),\((\d+)\s*J\),DAC\((\d+)\)\s*$`)
	statusPilotRE       = regexp.MustCompile(`(?m)^Pilot State:\s*([0-9.]+)mA,ADC\((\d+)\),\s*DAC\((\d+)\),\s*\((\w+)\),\s*mode\((\d+)\)\s*$`)
	statusPDRE          = regexp.MustCompile(`(?m)^PD Voltage:\s*([0-9.]+)mV,ADC\((\d+)\)\s*$`)
	statusNTC14RE       = regexp.MustCompile(`(?m)^NTC1~4:\s*(.+)$`)
	statusNTC58RE       = regexp.MustCompile(`(?m)^NTC5~8:\s*(.+)$`)
	statusNTCPairRE     = regexp.MustCompile(`([-+]?\d+(?:\.\d+)?)C,ADC\((\d+)\)`)
	statusPressureRE    = regexp.MustCompile(`(?m)^Pressure:\s*([0-9.]+),ADC\((\d+)\)\s*$`)
	statusAirHRRE       = regexp.MustCompile(`(?m)^AirHR:\s*([0-9.]+)%?,ADC\((\d+)\)\s*$`)
	statusAirTRE        = regexp.MustCompile(`(?m)^AirT:\s*([0-9.]+)C,ADC\((\d+)\)\s*$`)
	statusTempPresRE    = regexp.MustCompile(`(?m)^Temp:\s*([0-9.]+)\s*C\s*Pres:\s*([0-9.]+)\s*KPa\s*$`)
	statusDewRE         = regexp.MustCompile(`(?m)^Dew:\s*([0-9.]+)\s*$`)
	statusWarningRE     = regexp.MustCompile(`(?m)^WARNING\((0x[0-9A-Fa-f]+)\):\s*(.+?)\s*$`)
	statusErrorRE       = regexp.MustCompile(`(?m)^ERROR\((0x[0-9A-Fa-f]+)\):\s*(.+?)\s*$`)
	statusLockRE        = regexp.MustCompile(`(?m)^LOCK\((0x[0-9A-Fa-f]+)\):\s*(.*?)\s*$`)
	statusTEMRE         = regexp.MustCompile(`(?m)^TEM:(\d+)\s*$`)

	numberRE = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)
)

// ParseStatus decodes a `status` dump. Every field is extracted
// independently: a line the firmware omitted or mangled leaves its
// field nil without affecting the rest.
func ParseStatus(text string) (*StatusSnapshot, error) {
	text = strings.ReplaceAll(text, "\r", "")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyOutput
	}

	s := &StatusSnapshot{}

	s.PowerOnTime = findString(statusPowerOnTimeRE, text)
	s.RTCTime = findString(statusRTCTimeRE, text)
	s.WorkMode = findString(statusWorkModeRE, text)
	s.WorkState = findString(statusWorkStateRE, text)
	s.LaserState = findString(statusLaserStateRE, text)
	s.PulseOn = findInt(statusPulseOnRE, text)
	s.PulseOff = findInt(statusPulseOffRE, text)
	s.WaveState = findInt(statusWaveStateRE, text)

	if m := statusIOStateRE.FindStringSubmatch(text); m != nil {
		flags := make(map[string]int)
		for _, pair := range statusIOFlagRE.FindAllStringSubmatch(m[1], -1) {
			flags[pair[1]] = atoi(pair[2])
		}
		if len(flags) > 0 {
			s.IOFlags = flags
		}
	}

	if m := statusPowerOutRE.FindStringSubmatch(text); m != nil {
		s.PowerOut = &PowerOut{
			Pct:   atof(m[1]),
			W:     atoi(m[2]),
			DAC:   atoi(m[3]),
			State: m[4],
		}
	}
	if m := statusPowerParamRE.FindStringSubmatch(text); m != nil {
		s.PowerParam = &PowerParam{
			Power:   atof(m[1]),
			PWMFre:  atoi(m[2]),
			PWMDuty: atoi(m[3]),
		}
	}
	if m := statusPowerDriveRE.FindStringSubmatch(text); m != nil {
		s.PowerDrive = &PowerDrive{V: atof(m[1]), A: atof(m[2])}
	}

	if m := statusDriveVoltRE.FindStringSubmatch(text); m != nil {
		s.DriveVolt = findFloats(m[1], 2)
	}
	if m := statusDriveCurrRE.FindStringSubmatch(text); m != nil {
		s.DriveCurrent = findFloats(m[1], 4)
	}

	if m := statusEnergyRE.FindStringSubmatch(text); m != nil {
		s.Energy = &EnergyState{State: atoi(m[1]), J: atoi(m[2]), DAC: atoi(m[3])}
	}
	if m := statusPilotRE.FindStringSubmatch(text); m != nil {
		s.Pilot = &PilotState{
			MA:    atof(m[1]),
			ADC:   atoi(m[2]),
			DAC:   atoi(m[3]),
			OnOff: m[4],
			Mode:  atoi(m[5]),
		}
	}
	if m := statusPDRE.FindStringSubmatch(text); m != nil {
		s.PD = &PDVoltage{MV: atof(m[1]), ADC: atoi(m[2])}
	}

	var ntc []NTCReading
	for _, lineRE := range []*regexp.Regexp{statusNTC14RE, statusNTC58RE} {
		m := lineRE.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for _, pair := range statusNTCPairRE.FindAllStringSubmatch(m[1], -1) {
			ntc = append(ntc, NTCReading{C: atof(pair[1]), ADC: atoi(pair[2])})
		}
	}
	if len(ntc) > 0 {
		s.NTC = ntc // index 0..7 correspond to NTC1..NTC8
	}

	if m := statusPressureRE.FindStringSubmatch(text); m != nil {
		s.Pressure = &ADCReading{Value: atof(m[1]), ADC: atoi(m[2])}
	}
	if m := statusAirHRRE.FindStringSubmatch(text); m != nil {
		s.AirHR = &ADCReading{Value: atof(m[1]), ADC: atoi(m[2])}
	}
	if m := statusAirTRE.FindStringSubmatch(text); m != nil {
		s.AirT = &AirTemp{ValueC: atof(m[1]), ADC: atoi(m[2])}
	}

	tempPres := statusTempPresRE.FindStringSubmatch(text)
	dew := statusDewRE.FindStringSubmatch(text)
	if tempPres != nil || dew != nil {
		env := &EnvSummary{}
		if tempPres != nil {
			env.TempC = floatPtr(atof(tempPres[1]))
			env.PresKPa = floatPtr(atof(tempPres[2]))
		}
		if dew != nil {
			env.Dew = floatPtr(atof(dew[1]))
		}
		s.Env = env
	}

	if m := statusWarningRE.FindStringSubmatch(text); m != nil {
		s.Warning = &MaskText{Mask: m[1], Text: m[2]}
	}
	if m := statusErrorRE.FindStringSubmatch(text); m != nil {
		s.Error = &MaskText{Mask: m[1], Text: m[2]}
	}
	if m := statusLockRE.FindStringSubmatch(text); m != nil {
		s.Lock = &MaskText{Mask: m[1], Text: m[2]}
	}
	s.TEM = findInt(statusTEMRE, text)

	if s.isEmpty() {
		return nil, ErrUnrecognizedOutput
	}
	return s, nil
}

// isEmpty reports whether no field at all was extracted.
func (s *StatusSnapshot) isEmpty() bool {
	return s.PowerOnTime == nil && s.RTCTime == nil && s.WorkMode == nil &&
		s.WorkState == nil && s.LaserState == nil && s.PulseOn == nil &&
		s.PulseOff == nil && s.WaveState == nil && s.IOFlags == nil &&
		s.PowerOut == nil && s.PowerParam == nil && s.PowerDrive == nil &&
		s.DriveVolt == nil && s.DriveCurrent == nil && s.Energy == nil &&
		s.Pilot == nil && s.PD == nil && s.NTC == nil && s.Pressure == nil &&
		s.AirHR == nil && s.AirT == nil && s.Env == nil && s.Warning == nil &&
		s.Error == nil && s.Lock == nil && s.TEM == nil
}

func findString(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(m[1])
	if v == "" {
		return nil
	}
	return &v
}

func findInt(re *regexp.Regexp, text string) *int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n := atoi(m[1])
	return &n
}

// findFloats extracts up to max numbers from a comma-separated list.
func findFloats(list string, max int) []float64 {
	var out []float64
	for _, token := range numberRE.FindAllString(list, -1) {
		out = append(out, atof(token))
		if len(out) == max {
			break
		}
	}
	return out
}

// atoi and atof are only called on strings already matched by a digit
// regexp, so conversion failures cannot occur; they fall back to zero
// for safety.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func floatPtr(f float64) *float64 { return &f }

func intPtr(n int) *int { return &n }
