package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
)

func TestRenderKitchenTicketS1(t *testing.T) {
	job := model.KitchenJob{
		ID:         "abc123",
		Department: "cucina",
		Route:      &model.RouteSnapshot{ID: "p1"},
		Payload: model.KitchenPayload{
			RestaurantName: "Aoyama",
			TableNumber:    "7",
			OrderNumber:    42,
			CreatedAt:      "2024-01-15T12:30:00Z",
			Items: []model.KitchenItem{
				{Name: "TUNA ROLL", Quantity: 2},
				{Name: "salmon nigiri", Quantity: 1, Notes: "no wasabi"},
			},
		},
	}

	out := RenderKitchenTicket(job)
	s := string(out)

	require.Equal(t, []byte{0x1B, 0x40, 0x1B, 0x4D, 0x01, 0x1B, 0x20, 0x02}, out[:8])
	require.Contains(t, s, "COMANDA CUCINA #42")
	require.Contains(t, s, "TAVOLO: 7")
	require.Contains(t, s, "2x Tuna Roll")
	require.Contains(t, s, "1x Salmon Nigiri")
	require.Contains(t, s, " Nota: no wasabi")
	require.Contains(t, s, "-- Aoyama --")
	require.True(t, strings.HasSuffix(s, "\x1bd\x07\x1dV\x00"))
}

func TestRenderKitchenTicketDeterministic(t *testing.T) {
	job := model.KitchenJob{
		Payload: model.KitchenPayload{RestaurantName: "R", TableNumber: "1", OrderNumber: 1},
	}
	a := RenderKitchenTicket(job)
	b := RenderKitchenTicket(job)
	require.Equal(t, a, b)
}

func TestRenderKitchenTicketWordWrapsLongItem(t *testing.T) {
	job := model.KitchenJob{
		Payload: model.KitchenPayload{
			RestaurantName: "R",
			TableNumber:    "1",
			OrderNumber:    1,
			Items: []model.KitchenItem{
				{Name: "a very long dish name that should wrap across more than one line of forty two columns", Quantity: 1},
			},
		},
	}
	s := stripStyleCodes(string(RenderKitchenTicket(job)))
	for _, l := range strings.Split(s, "\n") {
		require.LessOrEqual(t, len(l), kitchenWidth)
	}
}

func TestRenderFiscalDocumentS2Shape(t *testing.T) {
	job := model.FiscalJob{
		ID: "fj1",
		Payload: model.FiscalPayload{
			TotalAmount:   12.34,
			PaymentMethod: "card",
			TableNumber:   "9",
		},
	}
	doc := string(RenderFiscalDocument(job))
	require.Contains(t, doc, "<FPMessage>")
	require.Contains(t, doc, `<beginFiscalReceipt operator="1"/>`)
	require.Contains(t, doc, `price="1234"`)
	require.Contains(t, doc, `description="Sushiamo Tavolo 9"`)
	require.Contains(t, doc, `description="ELETTRONICO"`)
	require.Contains(t, doc, `payment="1234"`)
	require.Contains(t, doc, "<endFiscalReceipt/>")
}

func TestRenderFiscalDocumentMinimumOneCent(t *testing.T) {
	job := model.FiscalJob{Payload: model.FiscalPayload{TotalAmount: 0}}
	doc := string(RenderFiscalDocument(job))
	require.Contains(t, doc, `price="1"`)
}

func TestRenderFiscalDocumentEscapesXML(t *testing.T) {
	job := model.FiscalJob{Payload: model.FiscalPayload{TotalAmount: 1, TableNumber: `<9 & "10">`}}
	doc := string(RenderFiscalDocument(job))
	require.NotContains(t, doc, `<9`)
	require.Contains(t, doc, "&lt;9")
	require.Contains(t, doc, "&amp;")
}

func TestRenderNonFiscalReceiptOmitsZeroExtra(t *testing.T) {
	job := model.NonFiscalReceiptJob{
		Payload: model.NonFiscalPayload{
			RestaurantName: "Aoyama",
			TableNumber:    "3",
			Ayce:           15,
			Coperto:        2,
			Extra:          0,
			Total:          17,
			PaymentMethod:  "cash",
		},
	}
	s := string(RenderNonFiscalReceipt(job))
	require.Contains(t, s, "AYCE")
	require.Contains(t, s, "Coperto")
	require.NotContains(t, s, "Extra")
	require.Contains(t, s, "TOTALE")
	require.Contains(t, s, "Contanti")
	require.Contains(t, s, "Grazie per la visita!")
	require.Contains(t, s, "NON FISCALE")
}

func TestRenderNonFiscalReceiptIncludesPositiveExtra(t *testing.T) {
	job := model.NonFiscalReceiptJob{
		Payload: model.NonFiscalPayload{Extra: 5, PaymentMethod: "card"},
	}
	s := string(RenderNonFiscalReceipt(job))
	require.Contains(t, s, "Extra")
	require.Contains(t, s, "Carta")
}

func TestFormatEuro(t *testing.T) {
	require.Equal(t, "€ 12,34", formatEuro(12.34))
	require.Equal(t, "€ 12,34", formatEuro(-12.34))
	require.Equal(t, "€ 0,00", formatEuro(0))
}

func stripStyleCodes(s string) string {
	r := strings.NewReplacer(
		escBoldOn, "",
		escBoldOff, "",
		gsSizeNormal, "",
		gsSizeDouble, "",
	)
	return r.Replace(s)
}
