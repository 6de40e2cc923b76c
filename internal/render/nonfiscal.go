package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
)

// RenderNonFiscalReceipt renders a NonFiscalReceiptJob to ESC/POS bytes per
// spec.md 4.3.
func RenderNonFiscalReceipt(job model.NonFiscalReceiptJob) []byte {
	return buildNonFiscalDocument(job.Payload.RestaurantName, []labeledAmount{
		{"AYCE", job.Payload.Ayce, true},
		{"Coperto", job.Payload.Coperto, true},
		{"Extra", job.Payload.Extra, job.Payload.Extra > 0},
	}, job.Payload.Total, job.Payload.PaymentMethod)
}

type labeledAmount struct {
	label  string
	amount float64
	show   bool
}

func buildNonFiscalDocument(restaurantName string, rows []labeledAmount, total float64, paymentMethod string) []byte {
	var lines []line

	frame := strings.Repeat("=", kitchenWidth)
	lines = append(lines, line{text: frame})
	lines = append(lines, line{text: centerText(restaurantName, kitchenWidth), bold: true})
	lines = append(lines, line{text: frame})

	for _, row := range rows {
		if !row.show {
			continue
		}
		lines = append(lines, line{text: labelAmountRow(row.label, row.amount)})
	}

	lines = append(lines, line{text: strings.Repeat("-", kitchenWidth)})
	lines = append(lines, line{text: labelAmountRow("TOTALE", total), bold: true, wide: true})
	lines = append(lines, line{text: centerText(paymentLabel(paymentMethod), kitchenWidth)})
	lines = append(lines, line{text: frame})
	lines = append(lines, line{text: centerText("Grazie per la visita!", kitchenWidth)})
	lines = append(lines, line{text: centerText("*** NON FISCALE ***", kitchenWidth)})
	lines = append(lines, line{text: frame})

	return buildEscposBytes(lines)
}

// labelAmountRow renders "<label>" left and "€ X,YY" right-aligned to
// kitchenWidth.
func labelAmountRow(label string, amount float64) string {
	amountText := formatEuro(amount)
	padding := kitchenWidth - utf8.RuneCountInString(label) - utf8.RuneCountInString(amountText)
	if padding < 1 {
		padding = 1
	}
	return label + strings.Repeat(" ", padding) + amountText
}

// formatEuro formats the absolute value of amount as "€ X,YY".
func formatEuro(amount float64) string {
	if amount < 0 {
		amount = -amount
	}
	whole := int64(amount)
	cents := int64((amount-float64(whole))*100 + 0.5)
	return fmt.Sprintf("€ %d,%02d", whole, cents)
}

func paymentLabel(method string) string {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "card", "carta":
		return "Carta"
	default:
		return "Contanti"
	}
}

func centerText(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	right := width - len(s) - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}
