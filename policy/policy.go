// Copyright 2026 Lydia Systems
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"strconv"
	"strings"
)

// Outcome is the result class of a policy decision.
type Outcome int

const (
	// Deny means the command must not reach the serial link.
	Deny Outcome = iota
	// Allow means the command may be dispatched.
	Allow
)

func (o Outcome) String() string {
	if o == Allow {
		return "allow"
	}
	return "deny"
}

// Decision is the outcome of evaluating one command line. Reason is
// always populated: for denials it names the blocked verb or the
// validation failure, for allows it names the verb class that matched.
type Decision struct {
	Outcome Outcome
	Reason  string
}

// Allowed reports whether the decision permits dispatch.
func (d Decision) Allowed() bool { return d.Outcome == Allow }

// argCheck validates a setter argument. Returns an error describing
// the violation, or nil when the argument is acceptable.
type argCheck func(arg string) error

// intRange returns an argCheck accepting integers in [low, high].
func intRange(low, high int) argCheck {
	return func(arg string) error {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("expected an integer, got %q", arg)
		}
		if n < low || n > high {
			return fmt.Errorf("value %d out of range [%d, %d]", n, low, high)
		}
		return nil
	}
}

// floatRange returns an argCheck accepting numbers in [low, high].
func floatRange(low, high float64) argCheck {
	return func(arg string) error {
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("expected a number, got %q", arg)
		}
		if f < low || f > high {
			return fmt.Errorf("value %g out of range [%g, %g]", f, low, high)
		}
		return nil
	}
}

// blockedVerbs are energizing or otherwise unsafe actions. Always
// denied, with or without arguments. This table is the project's
// safety boundary: additions require review against the controller's
// safety documentation.
var blockedVerbs = map[string]struct{}{
	"onkey":      {},
	"offkey":     {},
	"laser_en":   {},
	"continuous": {},
	"pulse":      {},
	"laserdac":   {},
	"drivedc":    {},
	"pilot":      {},
	"pilotdac":   {},
	"piloti":     {},
	"feederon":   {},
	"feederoff":  {},
	"feedermove": {},
	"outstart":   {},
	"outstop":    {},
	"instart":    {},
	"instop":     {},
	"writeio":    {},
	"writeall":   {},
	"reboot":     {},
	"download":   {},
	"chgboot":    {},
	"setprocess": {},
	"applypro":   {},
}

// getterVerbs are read-only queries with no hardware side effects.
var getterVerbs = map[string]struct{}{
	"status":      {},
	"worktime":    {},
	"warning":     {},
	"error":       {},
	"lock":        {},
	"mode":        {},
	"state":       {},
	"substatus":   {},
	"getall":      {},
	"cur_pro":     {},
	"feeder_pro":  {},
	"maxpower":    {},
	"temp":        {},
	"pres":        {},
	"pressure":    {},
	"version":     {},
	"help":        {},
	"free":        {},
	"ps":          {},
	"list_device": {},
	// Dual-use verbs report their current value when called bare.
	"power":          {},
	"wave":           {},
	"headfre":        {},
	"headwide":       {},
	"feederoutspeed": {},
}

// setterVerbs are parameter writes, allowed only when the argument
// passes the per-verb check. A verb appearing in both getterVerbs and
// setterVerbs is dual-use: bare it reads, with an argument it writes.
var setterVerbs = map[string]argCheck{
	"maxpower":       floatRange(0, 100),
	"risetk":         intRange(0, 10000),
	"falltk":         intRange(0, 10000),
	"gaseatk":        intRange(0, 10000),
	"gaslatk":        intRange(0, 10000),
	"onwatk":         intRange(0, 10000),
	"offwatk":        intRange(0, 10000),
	"fan":            intRange(0, 1),
	"fanon":          intRange(0, 1),
	"fanduty":        intRange(0, 100),
	"fantemp":        intRange(0, 150),
	"intertimeout":   intRange(0, 86400),
	"wave":           intRange(0, 10),
	"headfre":        intRange(0, 5000),
	"headwide":       intRange(0, 1000),
	"feederoutspeed": intRange(0, 100),
}

// Evaluate decides whether a raw command line may be dispatched to the
// controller. Pure and total: any input produces a Decision, never a
// panic. The line is vetted before verb lookup: an empty line, an
// embedded newline, or a semicolon is denied outright so no input can
// smuggle a second command past the verb tables.
//
// The `power` verb is split by direction: bare `power` reads the
// current setting and is allowed; `power <value>` energizes the laser
// and is denied as a blocked verb.
func Evaluate(line string) Decision {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Decision{Deny, "Empty command"}
	}
	if strings.ContainsAny(line, "\r\n") {
		return Decision{Deny, "Multiline commands not allowed"}
	}
	if strings.Contains(line, ";") {
		return Decision{Deny, "Semicolons not allowed"}
	}

	fields := strings.Fields(trimmed)
	verb := strings.ToLower(fields[0])
	args := fields[1:]

	if verb == "power" && len(args) > 0 {
		return Decision{Deny, "Blocked verb: power"}
	}
	if _, blocked := blockedVerbs[verb]; blocked {
		return Decision{Deny, "Blocked verb: " + verb}
	}

	check, isSetter := setterVerbs[verb]
	_, isGetter := getterVerbs[verb]

	if len(args) > 0 {
		if isSetter {
			if err := check(args[0]); err != nil {
				return Decision{Deny, fmt.Sprintf("Invalid parameter for %s: %v", verb, err)}
			}
			return Decision{Allow, "Allowed setter-with-params"}
		}
		if isGetter {
			// Getters ignore trailing arguments on the controller.
			return Decision{Allow, "Allowed getter"}
		}
		return Decision{Deny, "Unknown/unaudited command: " + verb}
	}

	if isGetter {
		return Decision{Allow, "Allowed getter"}
	}
	if isSetter {
		return Decision{Deny, "Missing parameters for setter: " + verb}
	}
	return Decision{Deny, "Unknown/unaudited command: " + verb}
}

// Verb returns the normalized verb of a command line: the lowercased
// first whitespace-delimited token, or "" for a blank line.
func Verb(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// Arg returns everything after the verb, trimmed. "" when the line has
// no argument.
func Arg(line string) string {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[1:], " ")
}

// BlockedVerbs returns the blocked verb set, sorted order not
// guaranteed. Exposed so tests can prove every member denies.
func BlockedVerbs() []string {
	verbs := make([]string, 0, len(blockedVerbs))
	for v := range blockedVerbs {
		verbs = append(verbs, v)
	}
	return verbs
}
