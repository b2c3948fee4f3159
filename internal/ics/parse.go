package ics

import "strings"

// property is one unfolded content line: NAME;PARAM=V;PARAM=V:VALUE.
// Parameter keys are uppercased; values keep their quotes until they are
// used as identifiers.
type property struct {
	Name   string
	Value  string
	Params map[string]string
}

// Param returns the named parameter value, or "" when absent.
func (p property) Param(name string) string { return p.Params[name] }

// eventBlock is the property bag of one VEVENT. Last write wins per
// property name, except ATTENDEE lines which accumulate in feed order.
type eventBlock struct {
	props     map[string]property
	attendees []property
}

func newEventBlock() *eventBlock {
	return &eventBlock{props: make(map[string]property)}
}

func (b *eventBlock) add(p property) {
	if p.Name == "ATTENDEE" {
		b.attendees = append(b.attendees, p)
		return
	}
	b.props[p.Name] = p
}

// prop returns the named property and whether it was present.
func (b *eventBlock) prop(name string) (property, bool) {
	p, ok := b.props[name]
	return p, ok
}

// value returns the named property's value, or "" when absent.
func (b *eventBlock) value(name string) string {
	return b.props[name].Value
}

// feedDoc is the parsed calendar: the VEVENT blocks in feed order plus the
// calendar-level timezone hints.
type feedDoc struct {
	blocks      []eventBlock
	wrTimezone  string
	vtimezoneID string
}

// parseFeed unfolds the raw ICS text and scans it into VEVENT property
// bags. Lines outside a VEVENT are consulted only for the calendar-level
// hints (X-WR-TIMEZONE, the first TZID inside a VTIMEZONE). Components
// nested inside a VEVENT, such as VALARM, are skipped entirely so their
// properties cannot shadow the event's own. An unterminated block at EOF
// is discarded; a BEGIN:VEVENT while a block is open restarts the block.
func parseFeed(raw string) feedDoc {
	var doc feedDoc

	var cur *eventBlock
	nested := 0
	inVTimezone := false

	for _, line := range unfoldLines(raw) {
		p, ok := parseProperty(line)
		if !ok {
			continue
		}

		switch p.Name {
		case "BEGIN":
			v := strings.ToUpper(strings.TrimSpace(p.Value))
			switch {
			case v == "VEVENT":
				cur = newEventBlock()
				nested = 0
			case cur != nil:
				nested++
			case v == "VTIMEZONE":
				inVTimezone = true
			}
		case "END":
			v := strings.ToUpper(strings.TrimSpace(p.Value))
			switch {
			case cur != nil && nested > 0:
				nested--
			case cur != nil && v == "VEVENT":
				doc.blocks = append(doc.blocks, *cur)
				cur = nil
			case v == "VTIMEZONE":
				inVTimezone = false
			}
		default:
			switch {
			case cur != nil:
				if nested == 0 {
					cur.add(p)
				}
			case inVTimezone:
				if p.Name == "TZID" && doc.vtimezoneID == "" {
					doc.vtimezoneID = strings.TrimSpace(p.Value)
				}
			case p.Name == "X-WR-TIMEZONE":
				if doc.wrTimezone == "" {
					doc.wrTimezone = strings.TrimSpace(p.Value)
				}
			}
		}
	}

	return doc
}

// unfoldLines normalizes line endings and joins folded continuations: a
// line starting with one space or tab continues the previous logical line
// with that single leading character stripped. Other lines are trimmed of
// surrounding whitespace.
func unfoldLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	var logical []string
	for _, line := range strings.Split(raw, "\n") {
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(logical) > 0 {
			logical[len(logical)-1] += line[1:]
			continue
		}
		line = strings.TrimSpace(line)
		if line != "" {
			logical = append(logical, line)
		}
	}
	return logical
}

// parseProperty splits one logical line into name, parameters, and value.
// The split happens at the first ':' outside double quotes; parameter
// segments are ';'-separated, also quote-aware, and a bare segment with no
// '=' becomes a boolean parameter with value TRUE. Lines without a ':' are
// not properties.
func parseProperty(line string) (property, bool) {
	head, value, ok := splitNameValue(line)
	if !ok {
		return property{}, false
	}

	segs := splitUnquoted(head, ';')
	name := strings.ToUpper(strings.TrimSpace(segs[0]))
	if name == "" {
		return property{}, false
	}

	p := property{Name: name, Value: value}
	if len(segs) > 1 {
		p.Params = make(map[string]string, len(segs)-1)
		for _, seg := range segs[1:] {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			if eq := strings.IndexByte(seg, '='); eq >= 0 {
				p.Params[strings.ToUpper(seg[:eq])] = seg[eq+1:]
			} else {
				p.Params[strings.ToUpper(seg)] = "TRUE"
			}
		}
	}
	return p, true
}

// splitNameValue splits at the first ':' that is not inside double quotes,
// so quoted parameter values may contain colons (tzone:// identifiers).
func splitNameValue(line string) (head, value string, ok bool) {
	inQuotes := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case ':':
			if !inQuotes {
				return line[:i], line[i+1:], true
			}
		}
	}
	return "", "", false
}

// splitUnquoted splits s on sep, ignoring separators inside double quotes.
func splitUnquoted(s string, sep byte) []string {
	var parts []string
	inQuotes := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case sep:
			if !inQuotes {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
