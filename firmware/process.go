// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package firmware

import (
	"strconv"
	"strings"
)

// ParseProcess decodes one process-parameter dump (the output of
// `cur_pro` or `feeder_pro`). The firmware prints loosely grouped
// comma-separated key:value lines; recognized keys fill the typed
// fields and everything else is kept verbatim in Extras.
func ParseProcess(text string) (*ProcessParams, error) {
	text = strings.ReplaceAll(text, "\r", "")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyOutput
	}

	p := &ProcessParams{}
	var extras []ExtraKV

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || line == "msh >" {
			continue
		}
		lower := strings.ToLower(line)

		switch {
		case strings.HasPrefix(lower, "power:") && strings.Contains(line, ","):
			for key, value := range splitPairs(line) {
				switch key {
				case "power":
					p.Power = parseNum(value)
				case "fre":
					p.PWMFre = parseInt(value)
				case "duty":
					p.PWMDuty = parseInt(value)
				case "mode":
					p.Mode = parseInt(value)
				}
			}

		case strings.HasPrefix(lower, "head mode:"):
			_, rest, _ := strings.Cut(line, ":")
			parts := splitNonEmpty(rest, ",")
			if len(parts) > 0 {
				p.HeadMode = parseInt(parts[0])
				for _, part := range parts[1:] {
					key, value, ok := strings.Cut(part, ":")
					if !ok {
						continue
					}
					switch strings.ToLower(strings.TrimSpace(key)) {
					case "fre":
						p.HeadFre = parseInt(value)
					case "width":
						p.HeadWidth = parseInt(value)
					}
				}
			}

		case strings.HasPrefix(lower, "pulse tick"):
			for key, value := range splitPairs(trimGroupPrefix(line, "pulse tick")) {
				switch key {
				case "on":
					p.PulseOn = parseInt(value)
				case "off":
					p.PulseOff = parseInt(value)
				}
			}

		case strings.HasPrefix(lower, "gas tick"):
			for key, value := range splitPairs(trimGroupPrefix(line, "gas tick")) {
				switch key {
				case "early":
					p.GasEarly = parseInt(value)
				case "delay":
					p.GasDelay = parseInt(value)
				}
			}

		case strings.HasPrefix(lower, "power tick"):
			for key, value := range splitPairs(trimGroupPrefix(line, "power tick")) {
				switch key {
				case "rise":
					p.PowRise = parseInt(value)
				case "fall":
					p.PowFall = parseInt(value)
				case "early":
					p.PowEarly = parseInt(value)
				case "delay":
					p.PowDelay = parseInt(value)
				}
			}

		case strings.HasPrefix(lower, "power on"):
			for key, value := range splitPairs(line) {
				switch key {
				case "power on":
					p.PowerOn = parseInt(value)
				case "power off":
					p.PowerOff = parseInt(value)
				}
			}

		case strings.HasPrefix(lower, "process index:"):
			_, value, _ := strings.Cut(line, ":")
			p.Index = parseInt(value)

		case strings.HasPrefix(lower, "feeder_mode:"):
			// The feeder line repeats "len" after out_speed and again
			// after in_speed; track which speed came last to attribute
			// each len correctly.
			expect := ""
			for _, part := range strings.Split(line, ",") {
				key, value, ok := strings.Cut(part, ":")
				if !ok {
					continue
				}
				switch strings.ToLower(strings.TrimSpace(key)) {
				case "feeder_mode":
					p.FeederMode = parseInt(value)
				case "out_speed":
					p.FeederOutSpeed = parseInt(value)
					expect = "out"
				case "in_speed":
					p.FeederInSpeed = parseInt(value)
					expect = "in"
				case "len":
					switch expect {
					case "out":
						p.FeederOutLen = parseInt(value)
					case "in":
						p.FeederInLen = parseInt(value)
					}
					expect = ""
				}
			}

		case strings.HasPrefix(lower, "feeder_cycle:") || strings.HasPrefix(lower, "smoothness:"):
			for key, value := range splitPairs(line) {
				switch key {
				case "feeder_cycle":
					p.FeederCycle = parseInt(value)
				case "smoothness":
					p.FeederSmoothness = parseInt(value)
				case "out_delay":
					p.FeederOutDelay = parseInt(value)
				case "in_delay":
					p.FeederInDelay = parseInt(value)
				case "out_len":
					p.FeederOutLen = parseInt(value)
				case "in_len":
					p.FeederInLen = parseInt(value)
				}
			}

		default:
			if key, value, ok := strings.Cut(line, ":"); ok {
				extras = append(extras, ExtraKV{
					Key:   strings.TrimSpace(key),
					Value: strings.TrimSpace(value),
				})
			}
		}
	}

	if len(extras) > 0 {
		p.Extras = extras
	}
	if p.isEmpty() {
		return nil, ErrUnrecognizedOutput
	}
	return p, nil
}

// isEmpty reports whether nothing at all was extracted.
func (p *ProcessParams) isEmpty() bool {
	return p.Power == nil && p.PWMFre == nil && p.PWMDuty == nil &&
		p.Mode == nil && p.HeadMode == nil && p.HeadFre == nil &&
		p.HeadWidth == nil && p.PulseOn == nil && p.PulseOff == nil &&
		p.GasEarly == nil && p.GasDelay == nil && p.PowRise == nil &&
		p.PowFall == nil && p.PowEarly == nil && p.PowDelay == nil &&
		p.PowerOn == nil && p.PowerOff == nil && p.Index == nil &&
		p.FeederMode == nil && p.FeederOutSpeed == nil && p.FeederOutLen == nil &&
		p.FeederInSpeed == nil && p.FeederInLen == nil && p.FeederCycle == nil &&
		p.FeederSmoothness == nil && p.FeederOutDelay == nil &&
		p.FeederInDelay == nil && p.Extras == nil
}

// splitPairs parses a comma-separated list of key:value parts into a
// map keyed by the lower-cased, trimmed key. Parts without a colon are
// skipped.
func splitPairs(line string) map[string]string {
	pairs := make(map[string]string)
	for _, part := range strings.Split(line, ",") {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		pairs[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return pairs
}

// trimGroupPrefix removes a group header like "pulse tick" and an
// optional following colon, case-insensitively.
func trimGroupPrefix(line, prefix string) string {
	rest := strings.TrimSpace(line[len(prefix):])
	rest = strings.TrimPrefix(rest, ":")
	return strings.TrimSpace(rest)
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseInt parses a decimal integer, tolerating a float spelling of a
// whole number ("10.0"). Non-integers and garbage yield nil.
func parseInt(value string) *int {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return intPtr(n)
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == float64(int(f)) {
		return intPtr(int(f))
	}
	return nil
}

// parseNum parses a number, keeping fractional values. Garbage yields
// nil.
func parseNum(value string) *float64 {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return floatPtr(f)
	}
	return nil
}
