// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package firmware

import (
	"regexp"
	"strings"
)

// getallNumUnitRE matches a value that is a single number with an
// optional trailing unit token ("384.00 KPa", "55%", "120").
var getallNumUnitRE = regexp.MustCompile(`^([-+]?\d+(?:\.\d+)?)(?:\s*([A-Za-z%/]+))?\s*$`)

// ParseGetAll decodes a `getall` dump into a key-to-entry mapping.
// Numeric/unit extraction is best-effort: a value that does not look
// like a plain number keeps only its raw text.
func ParseGetAll(text string) (GetAllSnapshot, error) {
	text = strings.ReplaceAll(text, "\r", "")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyOutput
	}

	out := make(GetAllSnapshot)
	for _, line := range strings.Split(text, "\n") {
		s := strings.TrimSpace(line)
		if s == "" || s == "msh >" {
			continue
		}
		// Some firmware versions prefix entries with a dot.
		if strings.HasPrefix(s, ".") {
			s = strings.TrimSpace(s[1:])
		}
		key, raw, ok := strings.Cut(s, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		raw = strings.TrimSpace(raw)

		entry := GetAllEntry{Raw: raw}
		if m := getallNumUnitRE.FindStringSubmatch(raw); m != nil {
			entry.Value = floatPtr(atof(m[1]))
			entry.Unit = m[2]
		}
		out[key] = entry
	}

	if len(out) == 0 {
		return nil, ErrUnrecognizedOutput
	}
	return out, nil
}
