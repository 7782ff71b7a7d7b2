package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batfit/internal/service"
	"batfit/pkg/fitness/core"
)

type fakeSource struct {
	health *service.Health
	stats  *service.Snapshot
	err    error
}

func (f *fakeSource) GetHealth(ctx context.Context) (*service.Health, error) {
	return f.health, f.err
}

func (f *fakeSource) GetMetrics(ctx context.Context) (*service.Snapshot, error) {
	return f.stats, f.err
}

func newFake() *fakeSource {
	return &fakeSource{
		health: &service.Health{
			Status: "healthy",
			Method: "kernel",
			Cache:  core.CacheInfo{Loaded: true, Generation: 2, ChromoLen: 100, Dim: 10},
			Uptime: "5s",
		},
		stats: &service.Snapshot{
			TotalLoads:       2,
			TotalBatches:     1,
			TotalChromosomes: 3,
			CacheGeneration:  2,
			Recent: []service.BatchSummary{
				{BatchID: "0123456789abcdef", NumBats: 3, Best: 18, LatencyUs: 42, At: time.Now()},
			},
		},
	}
}

func poll(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(m.fetchStatus())
	return next.(Model)
}

func TestStatusUpdatesPanelAndLog(t *testing.T) {
	src := newFake()
	m := poll(t, NewModel(src, "localhost:8080", time.Second))

	assert.True(t, m.Connected)
	assert.Equal(t, "kernel", m.Health.Method)
	require.Len(t, m.Logs, 3)
	assert.Contains(t, m.Logs[1], "connected: method=kernel")
	assert.Contains(t, m.Logs[2], "batch 01234567 bats=3")

	view := m.View()
	assert.Contains(t, view, "Server: Connected")
	assert.Contains(t, view, "gen 2, 100 genes x 10 dims")

	// the same batch is not logged twice
	m = poll(t, m)
	assert.Len(t, m.Logs, 3)

	src.stats.Recent = append(src.stats.Recent, service.BatchSummary{BatchID: "feedface", NumBats: 1, Error: "sequencing violation", At: time.Now()})
	m = poll(t, m)
	require.Len(t, m.Logs, 4)
	assert.Contains(t, m.Logs[3], "sequencing violation")
}

func TestConnectionLossIsLoggedOnce(t *testing.T) {
	src := newFake()
	m := poll(t, NewModel(src, "localhost:8080", time.Second))

	src.err = errors.New("connection refused")
	m = poll(t, m)
	m = poll(t, m)

	assert.False(t, m.Connected)
	lost := 0
	for _, l := range m.Logs {
		if strings.Contains(l, "connection lost") {
			lost++
		}
	}
	assert.Equal(t, 1, lost)
	assert.Contains(t, m.View(), "Server: Disconnected")
}

func TestCopySummary(t *testing.T) {
	m := poll(t, NewModel(newFake(), "localhost:8080", time.Second))

	var copied string
	m.copyText = func(s string) error {
		copied = s
		return nil
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.True(t, m.ShowCopyNotice)
	assert.Contains(t, copied, "method=kernel")
	assert.Contains(t, copied, "chromosomes=3")
	assert.Contains(t, m.View(), "Copied to clipboard")

	next, _ = m.Update(hideCopyNoticeMsg{})
	assert.False(t, next.(Model).ShowCopyNotice)
}

func TestQuitKeys(t *testing.T) {
	m := NewModel(newFake(), "host:1", time.Second)
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := m.Update(key)
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	}
}

func TestSummaryWithoutData(t *testing.T) {
	m := NewModel(newFake(), "host:1", 0)
	assert.Equal(t, time.Second, m.Interval)
	assert.Equal(t, "batfit host:1: no data", m.Summary())
	assert.Contains(t, m.View(), "waiting for first poll")
}

func TestResize(t *testing.T) {
	m := NewModel(newFake(), "host:1", time.Second)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	assert.Equal(t, 116, m.LogView.Width)
	assert.Equal(t, 27, m.LogView.Height)
}
