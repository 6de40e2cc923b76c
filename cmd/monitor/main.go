// Command monitor is a terminal dashboard over cmd/bridge's control
// surface: it renders the live PublicState and a scrolling log tail, and
// lets the operator start/stop the service or run LAN discovery from the
// keyboard. It stands in for the desktop shell the core spec keeps out of
// scope, so the control/push contract has a concrete consumer to exercise.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/agent"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
)

const logTailSize = 200

func main() {
	addr := flag.String("addr", "127.0.0.1:8787", "address of the bridge's control surface")
	flag.Parse()

	client, err := dialBridge(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "monitor: %v\n", err)
		os.Exit(1)
	}
	defer client.close()

	m := newModel(client)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "monitor: %v\n", err)
		os.Exit(1)
	}
}

type pushMsg wireMessage
type actionErrMsg struct{ err error }
type actionDoneMsg struct{ label string }

// uiModel is the bubbletea Model backing the monitor (spec.md 4.9 consumer).
type uiModel struct {
	client *bridgeClient

	state     agent.PublicState
	haveState bool
	logs      []model.LogRow
	logView   viewport.Model
	status    string
	width     int
	height    int
}

func newModel(client *bridgeClient) uiModel {
	return uiModel{client: client, status: "connecting...", logView: viewport.New(80, 10)}
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(listenForPush(m.client), requestSnapshot(m.client))
}

func listenForPush(c *bridgeClient) tea.Cmd {
	return func() tea.Msg {
		msg, err := c.next()
		if err != nil {
			return actionErrMsg{err: fmt.Errorf("connection lost: %w", err)}
		}
		return pushMsg(msg)
	}
}

func requestSnapshot(c *bridgeClient) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		msg, err := c.call(ctx, "getPublicState", nil)
		if err != nil {
			return actionErrMsg{err: err}
		}
		var state agent.PublicState
		if err := json.Unmarshal(msg.Result, &state); err != nil {
			return actionErrMsg{err: fmt.Errorf("decode state snapshot: %w", err)}
		}
		return pushMsg{Type: "printer-state", State: &state}
	}
}

func runCommand(c *bridgeClient, label, command string, params any) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if _, err := c.call(ctx, command, params); err != nil {
			return actionErrMsg{err: err}
		}
		return actionDoneMsg{label: label}
	}
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.logView.Width = max(20, m.width-2)
		m.logView.Height = max(5, m.height-10)
		m.logView.SetContent(renderLogLines(m.logs))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "s":
			m.status = "starting service..."
			return m, runCommand(m.client, "service started", "startService", nil)
		case "x":
			m.status = "stopping service..."
			return m, runCommand(m.client, "service stopped", "stopService", nil)
		case "p":
			m.status = "discovering printers..."
			return m, runCommand(m.client, "printer discovery complete", "discoverPrinters", struct {
				TimeoutMs int `json:"timeoutMs"`
			}{TimeoutMs: 3000})
		case "r":
			m.status = "discovering RT devices..."
			return m, runCommand(m.client, "RT discovery complete", "discoverRtDevices", struct {
				TimeoutMs int `json:"timeoutMs"`
			}{TimeoutMs: 3000})
		}
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd

	case pushMsg:
		switch msg.Type {
		case "printer-state":
			if msg.State != nil {
				m.state = *msg.State
				m.haveState = true
			}
		case "printer-log":
			if msg.Log != nil {
				m.logs = append(m.logs, *msg.Log)
				if len(m.logs) > logTailSize {
					m.logs = m.logs[len(m.logs)-logTailSize:]
				}
				atBottom := m.logView.AtBottom()
				m.logView.SetContent(renderLogLines(m.logs))
				if atBottom {
					m.logView.GotoBottom()
				}
			}
		}
		return m, listenForPush(m.client)

	case actionDoneMsg:
		m.status = msg.label
		return m, nil

	case actionErrMsg:
		m.status = "error: " + msg.err.Error()
		return m, nil
	}

	return m, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#D29922"))
)

func (m uiModel) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("sushiamo-bridge monitor") + "\n\n")

	if !m.haveState {
		b.WriteString("waiting for first state snapshot...\n")
	} else {
		running := dimStyle.Render("stopped")
		if m.state.Running {
			running = okStyle.Render("running")
		}
		b.WriteString(fmt.Sprintf("service: %s   printer: %s\n", running, printerLabel(m.state)))
		b.WriteString(fmt.Sprintf("claimed: %d   printed: %d   failed: %d\n",
			m.state.Stats.Claimed, m.state.Stats.Printed, m.state.Stats.Failed))
		b.WriteString(fmt.Sprintf("fiscal RPC: %s   non-fiscal RPC: %s\n",
			availabilityLabel(m.state.PhysicalReceiptAvailable),
			availabilityLabel(m.state.NonFiscalReceiptAvailable)))
		if m.state.Scope != nil {
			b.WriteString(fmt.Sprintf("restaurant: %s (%s)\n", m.state.Scope.Name, m.state.Scope.Role))
		} else {
			b.WriteString(warnStyle.Render("no restaurant scope resolved") + "\n")
		}
	}

	b.WriteString("\n" + headerStyle.Render("log") + "\n")
	b.WriteString(m.logView.View() + "\n")

	b.WriteString("\n" + dimStyle.Render(m.status) + "\n")
	b.WriteString(dimStyle.Render("[s] start  [x] stop  [p] discover printers  [r] discover RT  [↑/↓] scroll log  [q] quit") + "\n")

	return b.String()
}

func renderLogLines(logs []model.LogRow) string {
	var b strings.Builder
	for i, row := range logs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%s [%s] %s", row.At.Format("15:04:05"), row.Level, row.Message))
	}
	return b.String()
}

func printerLabel(s agent.PublicState) string {
	if s.AssignedPrinterID == nil {
		return "unassigned"
	}
	return *s.AssignedPrinterID
}

func availabilityLabel(ok bool) string {
	if ok {
		return okStyle.Render("available")
	}
	return warnStyle.Render("degraded")
}
