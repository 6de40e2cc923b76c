// Package render turns job payloads into printable byte streams: ESC/POS
// for thermal kitchen tickets and non-fiscal receipts, Epson FPMate XML for
// fiscal documents (spec.md 4.3).
package render

import "strings"

const (
	escInit        = "\x1b@"     // ESC @
	escFontB       = "\x1bM\x01" // ESC M 1
	escCharSpacing = "\x1b\x20\x02"
	escBoldOn      = "\x1bE\x01"
	escBoldOff     = "\x1bE\x00"
	gsSizeNormal   = "\x1d!\x00"
	gsSizeDouble   = "\x1d!\x11"
	escFeed7Cut    = "\x1bd\x07\x1dV\x00"
)

const kitchenWidth = 42

// line is one logical line of a kitchen ticket together with its styling.
type line struct {
	text string
	bold bool
	wide bool
}

func buildEscposBytes(lines []line) []byte {
	var b strings.Builder
	b.WriteString(escInit)
	b.WriteString(escFontB)
	b.WriteString(escCharSpacing)

	for _, l := range lines {
		if l.bold {
			b.WriteString(escBoldOn)
		} else {
			b.WriteString(escBoldOff)
		}
		if l.wide {
			b.WriteString(gsSizeDouble)
		} else {
			b.WriteString(gsSizeNormal)
		}
		b.WriteString(l.text)
		b.WriteString("\n")
	}

	b.WriteString(escFeed7Cut)
	return []byte(b.String())
}

// wordWrap breaks s into lines of at most width characters, splitting on
// spaces. Words are never split: a single word longer than width is
// emitted whole on its own line, which then exceeds width.
func wordWrap(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var out []string
	cur := words[0]
	for _, w := range words[1:] {
		if len(cur)+1+len(w) > width {
			out = append(out, cur)
			cur = w
			continue
		}
		cur = cur + " " + w
	}
	out = append(out, cur)
	return out
}
