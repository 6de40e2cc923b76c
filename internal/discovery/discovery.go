// Package discovery scans the local LAN for printers and fiscal devices,
// probing a bounded set of hosts concurrently (spec.md 4.8). The worker
// pool shape is grounded on the teacher's DiscoverPrinters: a channel of
// targets drained by a fixed pool of goroutines synchronized with a
// sync.WaitGroup.
package discovery

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	minTimeoutMs     = 120
	maxTimeoutMs     = 2000
	defaultTimeoutMs = 350
	minFingerprintMs = 300

	maxConcurrency = 96
	maxHosts       = 1024

	fiscalEpsonAPIPath   = "/cgi-bin/fpmate.cgi"
	fiscalDefaultAPIPath = "/"
)

var printerPorts = []int{9100, 515, 631}
var fiscalPorts = []int{8008, 80, 443}

// ConnectionClass classifies the network interface a target was reached
// through, inferred from the interface name (spec.md 4.8).
type ConnectionClass string

const (
	ConnectionEthernet ConnectionClass = "ethernet"
	ConnectionWifi     ConnectionClass = "wifi"
	ConnectionUnknown  ConnectionClass = "unknown"
)

func classifyInterface(name string) ConnectionClass {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "wifi") || strings.Contains(lower, "wi-fi") || strings.Contains(lower, "wireless") || strings.Contains(lower, "wlan"):
		return ConnectionWifi
	case strings.Contains(lower, "ethernet") || strings.Contains(lower, "lan") || strings.Contains(lower, "eth"):
		return ConnectionEthernet
	default:
		return ConnectionUnknown
	}
}

// target is one host reachable through one local interface.
type target struct {
	host          string
	interfaceName string
	interfaceIP   string
	class         ConnectionClass
}

// PrinterCandidate is a discovered thermal printer.
type PrinterCandidate struct {
	Host           string
	Port           int
	Label          string
	InterfaceName  string
	InterfaceIP    string
	ConnectionType ConnectionClass
}

// FiscalCandidate is a discovered fiscal (RT) device.
type FiscalCandidate struct {
	Host           string
	Port           int
	Brand          string
	APIPath        string
	ConnectionType ConnectionClass
	InterfaceName  string
	InterfaceIP    string
	Source         string
	Label          string
}

// clampTimeout enforces the [120, 2000]ms window of spec.md 4.8.
func clampTimeout(timeoutMs int) time.Duration {
	if timeoutMs <= 0 {
		timeoutMs = defaultTimeoutMs
	}
	if timeoutMs < minTimeoutMs {
		timeoutMs = minTimeoutMs
	}
	if timeoutMs > maxTimeoutMs {
		timeoutMs = maxTimeoutMs
	}
	return time.Duration(timeoutMs) * time.Millisecond
}

// enumerateTargets lists every non-internal IPv4 host on every active
// interface's /24, excluding the local octet, loopback, and link-local
// addresses, capped at maxHosts.
func enumerateTargets() ([]target, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var targets []target
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		class := classifyInterface(iface.Name)
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil || ip4.IsLoopback() || ip4.IsLinkLocalUnicast() {
				continue
			}
			base := ip4.String()
			parts := strings.Split(base, ".")
			if len(parts) != 4 {
				continue
			}
			localOctet := parts[3]
			for i := 1; i <= 254; i++ {
				octet := strconv.Itoa(i)
				if octet == localOctet {
					continue
				}
				host := fmt.Sprintf("%s.%s.%s.%s", parts[0], parts[1], parts[2], octet)
				targets = append(targets, target{
					host:          host,
					interfaceName: iface.Name,
					interfaceIP:   base,
					class:         class,
				})
				if len(targets) >= maxHosts {
					return targets, nil
				}
			}
		}
	}
	return targets, nil
}

// runPool drains targets through a bounded pool of workers, each invoking
// probe; results are collected into a single slice.
func runPool[R any](ctx context.Context, targets []target, probe func(context.Context, target) (R, bool)) []R {
	workers := maxConcurrency
	if len(targets) < workers {
		workers = len(targets)
	}
	if workers == 0 {
		return nil
	}

	in := make(chan target)
	var mu sync.Mutex
	var results []R

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for t := range in {
				result, ok := probe(ctx, t)
				if !ok {
					continue
				}
				mu.Lock()
				results = append(results, result)
				mu.Unlock()
			}
		}()
	}

	for _, t := range targets {
		select {
		case in <- t:
		case <-ctx.Done():
		}
	}
	close(in)
	wg.Wait()

	return results
}

// DiscoverPrinters probes every LAN target on printerPorts in priority
// order, stopping at the first open port per host.
func DiscoverPrinters(ctx context.Context, timeoutMs int) ([]PrinterCandidate, error) {
	targets, err := enumerateTargets()
	if err != nil {
		return nil, err
	}
	timeout := clampTimeout(timeoutMs)

	results := runPool(ctx, targets, func(ctx context.Context, t target) (PrinterCandidate, bool) {
		port, ok := firstOpenPort(ctx, t.host, printerPorts, timeout)
		if !ok {
			return PrinterCandidate{}, false
		}
		return PrinterCandidate{
			Host:           t.host,
			Port:           port,
			Label:          "Stampante di rete",
			InterfaceName:  t.interfaceName,
			InterfaceIP:    t.interfaceIP,
			ConnectionType: t.class,
		}, true
	})

	sort.Slice(results, func(i, j int) bool { return lessNumericHost(results[i].Host, results[j].Host) })
	return results, nil
}

// DiscoverFiscalDevices probes every LAN target on fiscalPorts, infers a
// brand from the preferred open port, then attempts an HTTP fingerprint
// that overrides the port-based guess on a positive match.
func DiscoverFiscalDevices(ctx context.Context, timeoutMs int) ([]FiscalCandidate, error) {
	targets, err := enumerateTargets()
	if err != nil {
		return nil, err
	}
	timeout := clampTimeout(timeoutMs)
	fingerprintTimeout := timeout
	if fingerprintTimeout < minFingerprintMs*time.Millisecond {
		fingerprintTimeout = minFingerprintMs * time.Millisecond
	}

	results := runPool(ctx, targets, func(ctx context.Context, t target) (FiscalCandidate, bool) {
		open := allOpenPorts(ctx, t.host, fiscalPorts, timeout)
		if len(open) == 0 {
			return FiscalCandidate{}, false
		}
		port := preferredPort(open, fiscalPorts)
		brand := brandFromPort(port)

		if fpBrand, ok := fingerprintBrand(ctx, t.host, port, fingerprintTimeout); ok {
			brand = fpBrand
		}

		apiPath := fiscalDefaultAPIPath
		if brand == "epson" {
			apiPath = fiscalEpsonAPIPath
		}

		return FiscalCandidate{
			Host:           t.host,
			Port:           port,
			Brand:          brand,
			APIPath:        apiPath,
			ConnectionType: t.class,
			InterfaceName:  t.interfaceName,
			InterfaceIP:    t.interfaceIP,
			Source:         "lan_scan",
			Label:          "Registratore di cassa",
		}, true
	})

	sort.Slice(results, func(i, j int) bool { return lessNumericHost(results[i].Host, results[j].Host) })
	return results, nil
}

func firstOpenPort(ctx context.Context, host string, ports []int, timeout time.Duration) (int, bool) {
	for _, port := range ports {
		if probeTCP(ctx, host, port, timeout) {
			return port, true
		}
	}
	return 0, false
}

func allOpenPorts(ctx context.Context, host string, ports []int, timeout time.Duration) []int {
	var open []int
	for _, port := range ports {
		if probeTCP(ctx, host, port, timeout) {
			open = append(open, port)
		}
	}
	return open
}

func preferredPort(open, priority []int) int {
	for _, p := range priority {
		for _, o := range open {
			if o == p {
				return p
			}
		}
	}
	return open[0]
}

func brandFromPort(port int) string {
	if port == 8008 {
		return "epson"
	}
	return "other"
}

func probeTCP(ctx context.Context, host string, port int, timeout time.Duration) bool {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

var fingerprintKeywords = []struct {
	brand    string
	keywords []string
}{
	{"epson", []string{"epson", "fpmate", "fp90"}},
	{"custom", []string{"custom"}},
	{"olivetti", []string{"olivetti"}},
	{"axon", []string{"axon"}},
	{"rch", []string{"rch"}},
}

// fingerprintBrand fetches "/" on host:port and matches its body and
// Server/X-Powered-By headers against the known brand keywords.
func fingerprintBrand(ctx context.Context, host string, port int, timeout time.Duration) (string, bool) {
	client := &http.Client{Timeout: timeout}
	url := fmt.Sprintf("http://%s:%d/", host, port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 3000))
	haystack := strings.ToLower(string(body) + " " + resp.Header.Get("Server") + " " + resp.Header.Get("X-Powered-By"))

	for _, entry := range fingerprintKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(haystack, kw) {
				return entry.brand, true
			}
		}
	}
	return "", false
}

// lessNumericHost orders dotted-quad hosts by their numeric octets rather
// than ASCII byte order (spec.md 4.8).
func lessNumericHost(a, b string) bool {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		na, errA := strconv.Atoi(pa[i])
		nb, errB := strconv.Atoi(pb[i])
		if errA != nil || errB != nil {
			if pa[i] != pb[i] {
				return pa[i] < pb[i]
			}
			continue
		}
		if na != nb {
			return na < nb
		}
	}
	return len(pa) < len(pb)
}
