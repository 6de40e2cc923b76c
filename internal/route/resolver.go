// Package route resolves a kitchen job to a concrete printer target,
// following the precedence of spec.md 4.5.
package route

import (
	"errors"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
)

// ErrNoPrinterHost is returned when none of the resolution steps yield a
// usable target.
var ErrNoPrinterHost = errors.New("NO_PRINTER_HOST")

const fallbackPort = 9100

// Target is a concrete destination a rendered ticket can be sent to.
type Target struct {
	ID   string
	Name string
	Host string
	Port int
}

// Resolve picks a Target for job against routes, in precedence order:
// route-by-id, department table, restaurant default, inline snapshot host,
// else ErrNoPrinterHost.
func Resolve(job model.KitchenJob, routes model.LiveRoutes) (Target, error) {
	if job.Route != nil && job.Route.ID != "" {
		if p, ok := routes.ByID[job.Route.ID]; ok && p.Enabled && p.Host != "" {
			return targetFromPrinter(p), nil
		}
	}

	if p, ok := routes.ByDepartment[job.NormalizedDepartment()]; ok && p.Enabled && p.Host != "" {
		return targetFromPrinter(p), nil
	}

	if routes.DefaultPrinterID != "" {
		if p, ok := routes.ByID[routes.DefaultPrinterID]; ok && p.Enabled && p.Host != "" {
			return targetFromPrinter(p), nil
		}
	}

	if job.Route != nil && job.Route.Host != "" {
		return Target{
			ID:   job.Route.ID,
			Name: job.Route.ID,
			Host: job.Route.Host,
			Port: NormalizePort(job.Route.Port),
		}, nil
	}

	return Target{}, ErrNoPrinterHost
}

func targetFromPrinter(p model.LivePrinter) Target {
	return Target{ID: p.ID, Name: p.Name, Host: p.Host, Port: NormalizePort(p.Port)}
}

// NormalizePort collapses any out-of-range port to the ESC/POS default of
// 9100 (spec.md 4.5).
func NormalizePort(port int) int {
	if port < 1 || port > 65535 {
		return fallbackPort
	}
	return port
}
