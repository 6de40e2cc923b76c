package render

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
)

// RenderFiscalDocument renders a FiscalJob to an Epson FPMate XML document
// per spec.md 4.3.
func RenderFiscalDocument(job model.FiscalJob) []byte {
	cents := euroToCents(job.Payload.TotalAmount)
	description := fmt.Sprintf("Sushiamo Tavolo %s", job.Payload.TableNumber)
	paymentDescription := "CONTANTI"
	if strings.EqualFold(job.Payload.PaymentMethod, "card") || strings.EqualFold(job.Payload.PaymentMethod, "carta") {
		paymentDescription = "ELETTRONICO"
	}

	var b strings.Builder
	b.WriteString(`<FPMessage>`)
	b.WriteString(`<beginFiscalReceipt operator="1"/>`)
	fmt.Fprintf(&b, `<printRecItem description="%s" price="%d" quantity="1" department="1" vatCode="1"/>`,
		xmlEscape(description), cents)
	fmt.Fprintf(&b, `<printRecTotal description="%s" payment="%d"/>`, xmlEscape(paymentDescription), cents)
	b.WriteString(`<endFiscalReceipt/>`)
	b.WriteString(`</FPMessage>`)

	return []byte(b.String())
}

// ConnectivityTestDocument is the non-fiscal FPMate document used by
// testRtReceipt to probe a device without opening a real fiscal receipt
// (spec.md 4.3, 4.9).
func ConnectivityTestDocument() []byte {
	var b strings.Builder
	b.WriteString(`<FPMessage>`)
	b.WriteString(`<printNormal operator="1" data="Test di connessione"/>`)
	b.WriteString(`</FPMessage>`)
	return []byte(b.String())
}

// euroToCents converts a decimal amount to integer cents, with a floor of
// 1 cent (spec.md 4.3: price minimum 1).
func euroToCents(amount float64) int64 {
	if amount < 0 {
		amount = -amount
	}
	cents := int64(amount*100 + 0.5)
	if cents < 1 {
		cents = 1
	}
	return cents
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
