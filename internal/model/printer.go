package model

import "encoding/json"

// LivePrinter is one entry of the restaurant's live printer table, read
// from restaurants.settings.printing.
type LivePrinter struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	Enabled     bool     `json:"enabled"`
	Departments []string `json:"departments"`
}

// LiveRoutes indexes the live printer table for fast route resolution.
type LiveRoutes struct {
	ByID             map[string]LivePrinter
	ByDepartment     map[string]LivePrinter
	DefaultPrinterID string
}

// BuildLiveRoutes indexes printers by id and, for each department, keeps
// the first enabled printer that serves it (spec.md 4.5).
func BuildLiveRoutes(printers []LivePrinter, defaultPrinterID string) LiveRoutes {
	routes := LiveRoutes{
		ByID:             make(map[string]LivePrinter, len(printers)),
		ByDepartment:     make(map[string]LivePrinter),
		DefaultPrinterID: defaultPrinterID,
	}
	for _, p := range printers {
		routes.ByID[p.ID] = p
		if !p.Enabled {
			continue
		}
		for _, dept := range p.Departments {
			key := normalizeDepartment(dept)
			if _, exists := routes.ByDepartment[key]; !exists {
				routes.ByDepartment[key] = p
			}
		}
	}
	return routes
}

// printingSettings mirrors the restaurants.settings.printing object
// (spec.md 4.5).
type printingSettings struct {
	Printers         []LivePrinter `json:"printers"`
	DefaultPrinterID string        `json:"defaultPrinterId"`
}

// ParseLiveRoutes extracts LiveRoutes from a restaurant's raw settings
// JSON. A missing or unparseable printing block yields empty routes
// rather than an error, since a restaurant with no configured printers is
// a normal state.
func ParseLiveRoutes(settings json.RawMessage) LiveRoutes {
	var wrapper struct {
		Printing printingSettings `json:"printing"`
	}
	if len(settings) == 0 {
		return BuildLiveRoutes(nil, "")
	}
	if err := json.Unmarshal(settings, &wrapper); err != nil {
		return BuildLiveRoutes(nil, "")
	}
	return BuildLiveRoutes(wrapper.Printing.Printers, wrapper.Printing.DefaultPrinterID)
}
