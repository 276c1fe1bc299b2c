// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package firmware

// StatusSnapshot is the structured decoding of one `status` dump.
// Every field is optional: nil means the firmware did not print that
// line (or printed it in a form the parser did not recognize) in this
// cycle. CBOR field names match what the frontend already consumes.
type StatusSnapshot struct {
	PowerOnTime  *string      `cbor:"power_on_time,omitempty"`
	RTCTime      *string      `cbor:"rtc_time,omitempty"`
	WorkMode     *string      `cbor:"work_mode,omitempty"`
	WorkState    *string      `cbor:"work_state,omitempty"`
	LaserState   *string      `cbor:"laser_state,omitempty"`
	PulseOn      *int         `cbor:"pulse_on,omitempty"`
	PulseOff     *int         `cbor:"pulse_off,omitempty"`
	WaveState    *int         `cbor:"wave_state,omitempty"`
	IOFlags      map[string]int `cbor:"io_flags,omitempty"`
	PowerOut     *PowerOut    `cbor:"power_out,omitempty"`
	PowerParam   *PowerParam  `cbor:"power_param,omitempty"`
	PowerDrive   *PowerDrive  `cbor:"power_drive,omitempty"`
	DriveVolt    []float64    `cbor:"drive_volt,omitempty"`
	DriveCurrent []float64    `cbor:"drive_current,omitempty"`
	Energy       *EnergyState `cbor:"energy,omitempty"`
	Pilot        *PilotState  `cbor:"pilot,omitempty"`
	PD           *PDVoltage   `cbor:"pd,omitempty"`
	NTC          []NTCReading `cbor:"ntc,omitempty"`
	Pressure     *ADCReading  `cbor:"pressure,omitempty"`
	AirHR        *ADCReading  `cbor:"air_hr,omitempty"`
	AirT         *AirTemp     `cbor:"air_t,omitempty"`
	Env          *EnvSummary  `cbor:"env,omitempty"`
	Warning      *MaskText    `cbor:"warning,omitempty"`
	Error        *MaskText    `cbor:"error,omitempty"`
	Lock         *MaskText    `cbor:"lock,omitempty"`
	TEM          *int         `cbor:"tem,omitempty"`
}

// PowerOut is the "Power Out" line: percentage, watts, DAC code, and
// the output state word.
type PowerOut struct {
	Pct   float64 `cbor:"pct"`
	W     int     `cbor:"w"`
	DAC   int     `cbor:"dac"`
	State string  `cbor:"state"`
}

// PowerParam is the configured power/PWM parameter set.
type PowerParam struct {
	Power   float64 `cbor:"power"`
	PWMFre  int     `cbor:"pwm_fre"`
	PWMDuty int     `cbor:"pwm_duty"`
}

// PowerDrive is the measured drive voltage and current.
type PowerDrive struct {
	V float64 `cbor:"v"`
	A float64 `cbor:"a"`
}

// EnergyState is the energy accumulator line.
type EnergyState struct {
	State int `cbor:"state"`
	J     int `cbor:"j"`
	DAC   int `cbor:"dac"`
}

// PilotState is the pilot laser line.
type PilotState struct {
	MA    float64 `cbor:"ma"`
	ADC   int     `cbor:"adc"`
	DAC   int     `cbor:"dac"`
	OnOff string  `cbor:"onoff"`
	Mode  int     `cbor:"mode"`
}

// PDVoltage is the photodiode voltage line.
type PDVoltage struct {
	MV  float64 `cbor:"mv"`
	ADC int     `cbor:"adc"`
}

// NTCReading is one thermistor: degrees Celsius and the raw ADC code.
type NTCReading struct {
	C   float64 `cbor:"c"`
	ADC int     `cbor:"adc"`
}

// ADCReading is a sensor value paired with its raw ADC code
// (pressure, air humidity).
type ADCReading struct {
	Value float64 `cbor:"value"`
	ADC   int     `cbor:"adc"`
}

// AirTemp is the air temperature sensor line.
type AirTemp struct {
	ValueC float64 `cbor:"value_c"`
	ADC    int     `cbor:"adc"`
}

// EnvSummary is the environmental summary block. Sub-fields are
// independently optional because the firmware prints Temp/Pres and Dew
// on separate lines.
type EnvSummary struct {
	TempC   *float64 `cbor:"temp_c,omitempty"`
	PresKPa *float64 `cbor:"pres_kpa,omitempty"`
	Dew     *float64 `cbor:"dew,omitempty"`
}

// MaskText is a WARNING/ERROR/LOCK line: the hex bitmask as printed
// plus the firmware's human-readable text.
type MaskText struct {
	Mask string `cbor:"mask"`
	Text string `cbor:"text"`
}

// ProcessSnapshot holds the two parallel process-parameter records the
// controller exposes: the active process and the feeder process. They
// share one field schema.
type ProcessSnapshot struct {
	CurPro    *ProcessParams `cbor:"cur_pro,omitempty"`
	FeederPro *ProcessParams `cbor:"feeder_pro,omitempty"`
}

// ProcessParams is one process-parameter dump. Unrecognized key:value
// lines are preserved in Extras rather than dropped, since the
// firmware grows new fields between releases.
type ProcessParams struct {
	Power            *float64  `cbor:"power,omitempty"`
	PWMFre           *int      `cbor:"pwm_fre,omitempty"`
	PWMDuty          *int      `cbor:"pwm_duty,omitempty"`
	Mode             *int      `cbor:"mode,omitempty"`
	HeadMode         *int      `cbor:"head_mode,omitempty"`
	HeadFre          *int      `cbor:"head_fre,omitempty"`
	HeadWidth        *int      `cbor:"head_width,omitempty"`
	PulseOn          *int      `cbor:"pulse_on,omitempty"`
	PulseOff         *int      `cbor:"pulse_off,omitempty"`
	GasEarly         *int      `cbor:"gas_early,omitempty"`
	GasDelay         *int      `cbor:"gas_delay,omitempty"`
	PowRise          *int      `cbor:"pow_rise,omitempty"`
	PowFall          *int      `cbor:"pow_fall,omitempty"`
	PowEarly         *int      `cbor:"pow_early,omitempty"`
	PowDelay         *int      `cbor:"pow_delay,omitempty"`
	PowerOn          *int      `cbor:"power_on,omitempty"`
	PowerOff         *int      `cbor:"power_off,omitempty"`
	Index            *int      `cbor:"index,omitempty"`
	FeederMode       *int      `cbor:"feeder_mode,omitempty"`
	FeederOutSpeed   *int      `cbor:"feeder_out_speed,omitempty"`
	FeederOutLen     *int      `cbor:"feeder_out_len,omitempty"`
	FeederInSpeed    *int      `cbor:"feeder_in_speed,omitempty"`
	FeederInLen      *int      `cbor:"feeder_in_len,omitempty"`
	FeederCycle      *int      `cbor:"feeder_cycle,omitempty"`
	FeederSmoothness *int      `cbor:"feeder_smoothness,omitempty"`
	FeederOutDelay   *int      `cbor:"feeder_out_delay,omitempty"`
	FeederInDelay    *int      `cbor:"feeder_in_delay,omitempty"`
	Extras           []ExtraKV `cbor:"extras,omitempty"`
}

// ExtraKV is a raw key/value pair the process parser did not
// recognize.
type ExtraKV struct {
	Key   string `cbor:"key"`
	Value string `cbor:"value"`
}

// GetAllSnapshot maps each lower-cased getall key to its entry.
type GetAllSnapshot map[string]GetAllEntry

// GetAllEntry is one getall line. Raw is always present; Value and
// Unit are set only when the trailing text looks like a number with an
// optional unit token. Inconclusive extraction keeps Raw alone.
type GetAllEntry struct {
	Raw   string   `cbor:"raw"`
	Value *float64 `cbor:"value,omitempty"`
	Unit  string   `cbor:"unit,omitempty"`
}
