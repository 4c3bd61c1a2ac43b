// Package ical parses and generates the subset of RFC 5545 that rental
// platforms (Airbnb, Booking.com, Vrbo) exchange: VCALENDAR documents whose
// VEVENTs carry UID, DTSTART and DTEND.
package ical

import (
	"fmt"
	"strings"
	"time"
)

// Event is one imported calendar entry. End is checkout-exclusive.
// A feed event without a UID yields an empty UID here; callers must treat
// that as "no external id", not synthesize one from the start date:
// two UID-less events starting the same day are distinct blocks.
type Event struct {
	UID   string
	Start time.Time
	End   time.Time
}

// Block is one availability-ledger range to export.
type Block struct {
	ID     uint
	Start  time.Time
	End    time.Time
	Reason string
}

// ParseError reports an unparseable date inside a VEVENT. Sync code records
// it against the owning feed; it never reaches a booking flow.
type ParseError struct {
	Line  string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ical: cannot parse %q: %v", e.Line, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
	stampLayout    = "20060102T150405Z"
)

// Parse extracts all VEVENT blocks from raw iCal text.
//
// Feeds in the wild fold long lines and vary line endings, so input is
// unfolded first and property parameters (DTSTART;VALUE=DATE:...) are
// ignored. A VEVENT without DTSTART is skipped; a VEVENT without DTEND
// produces a zero-length range (End == Start); the upstream platforms
// always send DTEND, and a zero-length range blocks nothing downstream.
func Parse(text string) ([]Event, error) {
	lines := unfold(text)

	var (
		events  []Event
		inEvent bool
		cur     rawEvent
	)
	for _, line := range lines {
		switch {
		case line == "BEGIN:VEVENT":
			inEvent = true
			cur = rawEvent{}
		case line == "END:VEVENT":
			if !inEvent {
				continue
			}
			inEvent = false
			ev, ok, err := cur.toEvent()
			if err != nil {
				return nil, err
			}
			if ok {
				events = append(events, ev)
			}
		case inEvent:
			name, value := splitProperty(line)
			switch name {
			case "UID":
				cur.uid = value
			case "DTSTART":
				cur.dtstart = value
			case "DTEND":
				cur.dtend = value
			}
		}
	}
	return events, nil
}

type rawEvent struct {
	uid     string
	dtstart string
	dtend   string
}

func (r rawEvent) toEvent() (Event, bool, error) {
	if r.dtstart == "" {
		return Event{}, false, nil
	}
	start, err := parseDate(r.dtstart)
	if err != nil {
		return Event{}, false, &ParseError{Line: "DTSTART:" + r.dtstart, Cause: err}
	}
	end := start
	if r.dtend != "" {
		end, err = parseDate(r.dtend)
		if err != nil {
			return Event{}, false, &ParseError{Line: "DTEND:" + r.dtend, Cause: err}
		}
	}
	return Event{UID: r.uid, Start: start, End: end}, true, nil
}

// parseDate accepts YYYYMMDD (all-day, UTC midnight) and
// YYYYMMDDTHHMMSS with optional trailing Z.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation(dateLayout, value, time.UTC); err == nil {
		return t, nil
	}
	trimmed := strings.TrimSuffix(value, "Z")
	t, err := time.ParseInLocation(dateTimeLayout, trimmed, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// splitProperty separates "NAME;PARAM=X:VALUE" into name and value,
// dropping parameters.
func splitProperty(line string) (string, string) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return line, ""
	}
	name := line[:idx]
	value := line[idx+1:]
	if semi := strings.Index(name, ";"); semi >= 0 {
		name = name[:semi]
	}
	return strings.ToUpper(strings.TrimSpace(name)), value
}

// unfold normalizes line endings and joins RFC 5545 folded lines
// (continuations start with a space or tab).
func unfold(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var lines []string
	for _, l := range raw {
		if len(l) > 0 && (l[0] == ' ' || l[0] == '\t') && len(lines) > 0 {
			lines[len(lines)-1] += l[1:]
			continue
		}
		lines = append(lines, strings.TrimRight(l, "\r"))
	}
	return lines
}

// Format renders blocks as a VCALENDAR document with one all-day VEVENT
// per block. UIDs are synthetic and deterministic: blocked-<id>@<namespace>.
// Formatting then re-parsing reproduces the same (start, end) pairs.
func Format(blocks []Block, namespace string, now time.Time) string {
	var b strings.Builder
	writeLine := func(s string) {
		b.WriteString(s)
		b.WriteString("\r\n")
	}

	writeLine("BEGIN:VCALENDAR")
	writeLine("VERSION:2.0")
	writeLine("PRODID:-//" + namespace + "//booking-api//EN")
	writeLine("CALSCALE:GREGORIAN")
	writeLine("METHOD:PUBLISH")

	stamp := now.UTC().Format(stampLayout)
	for _, blk := range blocks {
		writeLine("BEGIN:VEVENT")
		writeLine(fmt.Sprintf("UID:blocked-%d@%s", blk.ID, namespace))
		writeLine("DTSTAMP:" + stamp)
		writeLine("DTSTART;VALUE=DATE:" + blk.Start.UTC().Format(dateLayout))
		writeLine("DTEND;VALUE=DATE:" + blk.End.UTC().Format(dateLayout))
		summary := blk.Reason
		if summary == "" {
			summary = "Not available"
		}
		writeLine("SUMMARY:" + summary)
		writeLine("STATUS:CONFIRMED")
		writeLine("TRANSP:OPAQUE")
		writeLine("END:VEVENT")
	}

	writeLine("END:VCALENDAR")
	return b.String()
}
