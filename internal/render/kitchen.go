package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
)

// RenderKitchenTicket renders a KitchenJob to ESC/POS bytes per spec.md 4.3.
func RenderKitchenTicket(job model.KitchenJob) []byte {
	p := job.Payload
	var lines []line

	lines = append(lines, line{
		text: fmt.Sprintf("COMANDA %s #%d", strings.ToUpper(job.NormalizedDepartment()), p.OrderNumber),
	})
	lines = append(lines, line{
		text: "TAVOLO: " + strings.ToUpper(p.TableNumber),
		bold: true,
		wide: true,
	})
	if formatted := formatKitchenDate(p.CreatedAt); formatted != "" {
		lines = append(lines, line{text: "DATA: " + formatted})
	}
	lines = append(lines, line{text: strings.Repeat("-", kitchenWidth)})

	for _, item := range p.Items {
		header := fmt.Sprintf("%dx %s", item.Quantity, prettifyDishName(item.Name))
		for _, wrapped := range wordWrap(header, kitchenWidth) {
			lines = append(lines, line{text: wrapped, bold: true, wide: true})
		}
		if strings.TrimSpace(item.Notes) != "" {
			notePrefix := "Nota: " + item.Notes
			for i, wrapped := range wordWrap(notePrefix, 40) {
				text := " " + wrapped
				if i > 0 {
					text = "  " + wrapped
				}
				lines = append(lines, line{text: text})
			}
		}
	}

	lines = append(lines, line{text: fmt.Sprintf("-- %s --", p.RestaurantName)})

	return buildEscposBytes(lines)
}

// prettifyDishName title-cases a name that is uniformly one case (all
// "TUNA ROLL" or all "salmon nigiri"); a name that already mixes upper and
// lower case is assumed pre-formatted and is left alone (spec.md 4.3).
func prettifyDishName(name string) string {
	if hasUpper(name) && hasLower(name) {
		return name
	}
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = titleCaseWord(w)
	}
	return strings.Join(words, " ")
}

func hasLower(s string) bool {
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return true
		}
	}
	return false
}

func hasUpper(s string) bool {
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}

func titleCaseWord(w string) string {
	if w == "" {
		return w
	}
	lower := strings.ToLower(w)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// formatKitchenDate parses an RFC3339 created_at and formats it as
// "YYYY/M/D HH:MM"; returns "" when createdAt is empty or unparseable.
func formatKitchenDate(createdAt string) string {
	if createdAt == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%04d/%d/%d %02d:%02d", t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute())
}
