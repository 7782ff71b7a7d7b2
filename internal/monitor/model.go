// Package monitor is a terminal dashboard for a running fitness server.
package monitor

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	psutil "github.com/shirou/gopsutil/v3/cpu"
	psmem "github.com/shirou/gopsutil/v3/mem"

	"batfit/internal/service"
)

const maxLogLines = 200

// Styles
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFFF00")).
			Padding(0, 2).
			Bold(true).
			Width(80)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4B5563")).
			Padding(0, 2).
			Width(80)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2563EB")).
			Padding(0, 1)

	logViewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#9CA3AF"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34D399")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	copyNoticeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#10B981")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 2).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Italic(true)
)

// Source is what the dashboard polls. *client.APIClient satisfies it.
type Source interface {
	GetHealth(ctx context.Context) (*service.Health, error)
	GetMetrics(ctx context.Context) (*service.Snapshot, error)
}

type statusMsg struct {
	health *service.Health
	stats  *service.Snapshot
	err    error
}

type updateResourceDataMsg struct {
	data string
}

type hideCopyNoticeMsg struct{}

// Model represents the dashboard state
type Model struct {
	Source   Source
	Addr     string
	Interval time.Duration

	Health       *service.Health
	Stats        *service.Snapshot
	Connected    bool
	LastErr      error
	ResourceData string

	Logs    []string
	LogView viewport.Model
	Width   int
	Height  int

	ShowCopyNotice bool
	CopyErr        error

	// copyText writes to the clipboard; replaced in tests
	copyText func(string) error
	seen     map[string]bool
}

// NewModel creates a dashboard polling src every interval
func NewModel(src Source, addr string, interval time.Duration) Model {
	if interval <= 0 {
		interval = time.Second
	}
	logView := viewport.New(76, 10)
	logView.Style = logViewStyle

	m := Model{
		Source:       src,
		Addr:         addr,
		Interval:     interval,
		ResourceData: "CPU: -- | RAM: --",
		Logs:         []string{fmt.Sprintf("Watching %s ...", addr)},
		LogView:      logView,
		Width:        80,
		Height:       24,
		copyText:     clipboard.WriteAll,
		seen:         make(map[string]bool),
	}
	m.updateLogView()
	return m
}

// Init starts the polling loops
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.ClearScreen,
		m.pollStatus(),
		m.updateResourceData(),
	)
}

// Update handles UI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "c":
			m.CopyErr = m.copyText(m.Summary())
			m.ShowCopyNotice = true
			cmds = append(cmds, startCopyNoticeTimer())
		}

	case tea.WindowSizeMsg:
		m = m.handleResize(msg)

	case statusMsg:
		m.applyStatus(msg)
		cmds = append(cmds, m.pollStatus())

	case updateResourceDataMsg:
		m.ResourceData = msg.data
		cmds = append(cmds, m.updateResourceData())

	case hideCopyNoticeMsg:
		m.ShowCopyNotice = false
	}

	var cmd tea.Cmd
	m.LogView, cmd = m.LogView.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) applyStatus(msg statusMsg) {
	if msg.err != nil {
		if m.Connected || m.LastErr == nil {
			m.appendLog(errorStyle.Render("connection lost: ") + msg.err.Error())
		}
		m.Connected = false
		m.LastErr = msg.err
		m.updateLogView()
		return
	}

	if !m.Connected {
		m.appendLog(fmt.Sprintf("connected: method=%s status=%s", msg.health.Method, msg.health.Status))
	}
	m.Connected = true
	m.LastErr = nil
	m.Health = msg.health
	m.Stats = msg.stats

	current := make(map[string]bool, len(msg.stats.Recent))
	for _, b := range msg.stats.Recent {
		current[b.BatchID] = true
		if m.seen[b.BatchID] {
			continue
		}
		m.appendLog(formatBatch(b))
	}
	m.seen = current
	m.updateLogView()
}

func formatBatch(b service.BatchSummary) string {
	id := b.BatchID
	if len(id) > 8 {
		id = id[:8]
	}
	stamp := b.At.Format("15:04:05")
	if b.Error != "" {
		return fmt.Sprintf("%s batch %s bats=%d %s", stamp, id, b.NumBats, errorStyle.Render(b.Error))
	}
	return fmt.Sprintf("%s batch %s bats=%d best=%.4g %dus", stamp, id, b.NumBats, b.Best, b.LatencyUs)
}

func (m *Model) appendLog(line string) {
	m.Logs = append(m.Logs, line)
	if len(m.Logs) > maxLogLines {
		m.Logs = m.Logs[len(m.Logs)-maxLogLines:]
	}
}

// updateLogView rewraps the log into the viewport and follows the tail
func (m *Model) updateLogView() {
	width := m.LogView.Width - 2
	if width < 10 {
		width = 10
	}
	var content strings.Builder
	for i, line := range m.Logs {
		content.WriteString(ansi.Wordwrap(line, width, " \t"))
		if i < len(m.Logs)-1 {
			content.WriteString("\n")
		}
	}
	m.LogView.SetContent(content.String())
	m.LogView.GotoBottom()
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.Width = msg.Width
	m.Height = msg.Height

	// header(1) + footer(1) + help(1) + stats panel(8) + log border(2)
	logHeight := msg.Height - 13
	if logHeight < 3 {
		logHeight = 3
	}
	m.LogView.Width = msg.Width - 4
	m.LogView.Height = logHeight

	headerStyle = headerStyle.Width(msg.Width)
	footerStyle = footerStyle.Width(msg.Width)

	m.updateLogView()
	return m
}

// Summary is the plain-text metrics digest copied by the c key
func (m Model) Summary() string {
	if m.Health == nil || m.Stats == nil {
		return fmt.Sprintf("batfit %s: no data", m.Addr)
	}
	h, s := m.Health, m.Stats
	return fmt.Sprintf(
		"batfit %s method=%s status=%s generation=%d loads=%d batches=%d failed=%d chromosomes=%d avg_latency_us=%.1f chromosomes_per_sec=%.1f uptime=%s",
		m.Addr, h.Method, h.Status, s.CacheGeneration, s.TotalLoads, s.TotalBatches,
		s.FailedBatches, s.TotalChromosomes, s.AverageLatencyUs, s.ChromosomesPerSec, s.Uptime,
	)
}

// View renders the dashboard
func (m Model) View() string {
	status := "Server: Disconnected"
	if m.Connected {
		status = "Server: Connected"
	}
	header := headerStyle.Width(m.Width).Render(fmt.Sprintf(" batfit monitor | %s | %s", m.Addr, status))

	panel := panelStyle.Width(m.Width - 4).Render(m.renderStats())

	help := helpStyle.Render("  q quit  c copy summary  ↑/↓ scroll log")
	if m.ShowCopyNotice {
		if m.CopyErr != nil {
			help = errorStyle.Render("  copy failed: " + m.CopyErr.Error())
		} else {
			help = copyNoticeStyle.Render("✓ Copied to clipboard")
		}
	}

	footer := footerStyle.Width(m.Width).Render(m.ResourceData)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		panel,
		m.LogView.View(),
		help,
		footer,
	)
}

func (m Model) renderStats() string {
	if m.Health == nil || m.Stats == nil {
		msg := "waiting for first poll"
		if m.LastErr != nil {
			msg = m.LastErr.Error()
		}
		return errorStyle.Render(msg)
	}
	h, s := m.Health, m.Stats

	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-18s", label)) + valueStyle.Render(value)
	}
	cache := "empty"
	if h.Cache.Loaded {
		cache = fmt.Sprintf("gen %d, %d genes x %d dims", h.Cache.Generation, h.Cache.ChromoLen, h.Cache.Dim)
	}
	numerics := "software"
	if h.Hardware {
		numerics = "hardware"
	}

	lines := []string{
		row("Method", fmt.Sprintf("%s (%s numerics)", h.Method, numerics)),
		row("Status", h.Status),
		row("Cache", cache),
		row("Loads / Batches", fmt.Sprintf("%d / %d (%d failed)", s.TotalLoads, s.TotalBatches, s.FailedBatches)),
		row("Chromosomes", fmt.Sprintf("%d (%.0f/s)", s.TotalChromosomes, s.ChromosomesPerSec)),
		row("Avg latency", fmt.Sprintf("%.1f us", s.AverageLatencyUs)),
		row("Uptime", h.Uptime),
	}
	return strings.Join(lines, "\n")
}

// fetchStatus queries the server once
func (m Model) fetchStatus() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), m.Interval)
	defer cancel()

	health, err := m.Source.GetHealth(ctx)
	if err != nil {
		return statusMsg{err: err}
	}
	stats, err := m.Source.GetMetrics(ctx)
	if err != nil {
		return statusMsg{err: err}
	}
	return statusMsg{health: health, stats: stats}
}

func (m Model) pollStatus() tea.Cmd {
	return tea.Tick(m.Interval, func(time.Time) tea.Msg {
		return m.fetchStatus()
	})
}

// updateResourceData updates host resource usage information
func (m Model) updateResourceData() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		data := "CPU: -- | RAM: --"
		cpuPercent, err := psutil.Percent(0, false)
		memInfo, merr := psmem.VirtualMemory()
		if err == nil && merr == nil && len(cpuPercent) > 0 {
			data = fmt.Sprintf("CPU: %.1f%% | RAM: %.1f%%", cpuPercent[0], memInfo.UsedPercent)
		}
		return updateResourceDataMsg{data + " | Go: " + runtime.Version()}
	})
}

func startCopyNoticeTimer() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return hideCopyNoticeMsg{}
	})
}
