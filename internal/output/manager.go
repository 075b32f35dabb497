package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tanq16/segdl/internal/segmented"
	"github.com/tanq16/segdl/internal/utils"
)

type jobOutput struct {
	ID          int
	Label       string
	Status      string
	Message     string
	Percent     int
	Snapshot    *segmented.ProgressSnapshot
	StreamLines []string
	Complete    bool
	StartTime   time.Time
	LastUpdated time.Time
	Error       error
}

type errorReport struct {
	Label string
	Error error
	Time  time.Time
}

// Manager renders the state of every registered job. On a terminal it redraws
// in place; otherwise it prints plain lines as jobs change state.
type Manager struct {
	out         io.Writer
	outputs     map[int]*jobOutput
	mutex       sync.RWMutex
	numLines    int
	maxStreams  int
	errors      []errorReport
	doneCh      chan struct{}
	displayTick time.Duration
	jobCount    int
	live        bool
	displayWg   sync.WaitGroup
}

func NewManager() *Manager {
	return &Manager{
		out:         os.Stdout,
		outputs:     make(map[int]*jobOutput),
		maxStreams:  5,
		doneCh:      make(chan struct{}),
		displayTick: 200 * time.Millisecond,
		live:        isTerminal(),
	}
}

// NewPlainManager writes line-based output to w, which suits logs and tests.
func NewPlainManager(w io.Writer) *Manager {
	m := NewManager()
	m.out = w
	m.live = false
	return m
}

func (m *Manager) Register(label string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.jobCount++
	m.outputs[m.jobCount] = &jobOutput{
		ID:          m.jobCount,
		Label:       label,
		Status:      "pending",
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
	}
	return m.jobCount
}

func (m *Manager) SetLabel(id int, label string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, ok := m.outputs[id]; ok {
		info.Label = label
	}
}

// SetMessage records a progress notification for job id.
func (m *Manager) SetMessage(id int, message string, percent int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	info, ok := m.outputs[id]
	if !ok {
		return
	}
	changed := info.Message != message && !strings.HasPrefix(message, "Downloading...")
	info.Message = message
	info.Percent = percent
	if info.Status != "warning" {
		info.Status = "active"
	}
	info.LastUpdated = time.Now()
	if !m.live && changed {
		fmt.Fprintf(m.out, "[%s] %s\n", info.Label, message)
	}
}

// Warn flags a running job as degraded. The flag stays until the job ends.
func (m *Manager) Warn(id int, message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	info, ok := m.outputs[id]
	if !ok {
		return
	}
	info.Status = "warning"
	info.StreamLines = append(info.StreamLines, message)
	if len(info.StreamLines) > m.maxStreams {
		info.StreamLines = info.StreamLines[len(info.StreamLines)-m.maxStreams:]
	}
	info.LastUpdated = time.Now()
	if !m.live {
		fmt.Fprintf(m.out, "[%s] warning: %s\n", info.Label, message)
	}
}

func (m *Manager) SetSnapshot(id int, snap segmented.ProgressSnapshot) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, ok := m.outputs[id]; ok {
		info.Snapshot = &snap
		info.LastUpdated = time.Now()
	}
}

func (m *Manager) AddStreamLine(id int, line string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	info, ok := m.outputs[id]
	if !ok {
		return
	}
	info.StreamLines = append(info.StreamLines, wrapText(line, 6)...)
	if len(info.StreamLines) > m.maxStreams {
		info.StreamLines = info.StreamLines[len(info.StreamLines)-m.maxStreams:]
	}
	info.LastUpdated = time.Now()
	if !m.live {
		fmt.Fprintf(m.out, "[%s] %s\n", info.Label, line)
	}
}

func (m *Manager) Complete(id int, message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	info, ok := m.outputs[id]
	if !ok {
		return
	}
	info.StreamLines = nil
	info.Message = message
	info.Percent = 100
	info.Complete = true
	info.Status = "success"
	info.LastUpdated = time.Now()
	if !m.live {
		fmt.Fprintf(m.out, "[%s] %s\n", info.Label, message)
	}
}

func (m *Manager) ReportError(id int, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	info, ok := m.outputs[id]
	if !ok {
		return
	}
	info.Complete = true
	info.Status = "error"
	info.Error = err
	info.Message = fmt.Sprintf("Failed %s", info.Label)
	info.LastUpdated = time.Now()
	m.errors = append(m.errors, errorReport{Label: info.Label, Error: err, Time: time.Now()})
	if !m.live {
		fmt.Fprintf(m.out, "[%s] error: %v\n", info.Label, err)
	}
}

// Counts returns how many jobs succeeded and failed.
func (m *Manager) Counts() (success, failed int) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, info := range m.outputs {
		switch info.Status {
		case "success":
			success++
		case "error":
			failed++
		}
	}
	return success, failed
}

func statusIndicator(status string) string {
	switch status {
	case "success":
		return successStyle.Render(StyleSymbols["pass"])
	case "error":
		return errorStyle.Render(StyleSymbols["fail"])
	case "warning":
		return warningStyle.Render(StyleSymbols["warning"])
	case "pending":
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["bullet"])
	}
}

func styledMessage(info *jobOutput) string {
	switch info.Status {
	case "success":
		return successStyle.Render(info.Message)
	case "error":
		return errorStyle.Render(info.Message)
	default:
		return pendingStyle.Render(info.Message)
	}
}

func (m *Manager) sortedOutputs() []*jobOutput {
	all := make([]*jobOutput, 0, len(m.outputs))
	for _, info := range m.outputs {
		all = append(all, info)
	}
	sort.Slice(all, func(i, j int) bool {
		// active jobs go last so they stay at the bottom of the screen
		if all[i].Complete != all[j].Complete {
			return all[i].Complete
		}
		return all[i].ID < all[j].ID
	})
	return all
}

func (m *Manager) render() []string {
	var lines []string
	for _, info := range m.sortedOutputs() {
		elapsed := time.Since(info.StartTime).Round(time.Second)
		if info.Complete {
			elapsed = info.LastUpdated.Sub(info.StartTime).Round(time.Second)
		}
		message := info.Message
		if message == "" {
			message = "Waiting..."
		}
		info := *info
		info.Message = fmt.Sprintf("%s %s", info.Label, StyleSymbols["bullet"]+" "+message)
		lines = append(lines, fmt.Sprintf("  %s %s %s", statusIndicator(info.Status), debugStyle.Render(elapsed.String()), styledMessage(&info)))
		if info.Complete {
			continue
		}
		if snap := info.Snapshot; snap != nil {
			bar := PrintProgressBar(snap.TotalDownloaded, snap.TotalSize, 30)
			detail := fmt.Sprintf("%s / %s %s %s %s ETA %s",
				utils.FormatBytes(uint64(snap.TotalDownloaded)), utils.FormatBytes(uint64(snap.TotalSize)),
				StyleSymbols["bullet"], utils.FormatRate(snap.ThroughputBytesPerSec),
				StyleSymbols["bullet"], utils.FormatETA(snap.ETASeconds))
			lines = append(lines, "      "+bar+debugStyle.Render(detail))
		}
		for _, line := range info.StreamLines {
			lines = append(lines, "      "+streamStyle.Render(line))
		}
	}
	return lines
}

func (m *Manager) updateDisplay() {
	m.mutex.RLock()
	lines := m.render()
	m.mutex.RUnlock()

	_, termHeight := getTerminalSize()
	if available := termHeight - 3; len(lines) > available && available > 0 {
		lines = lines[len(lines)-available:]
	}
	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}
	for _, line := range lines {
		fmt.Fprintln(m.out, line)
	}
	m.numLines = len(lines)
}

func (m *Manager) StartDisplay() {
	if !m.live {
		return
	}
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.updateDisplay()
			case <-m.doneCh:
				m.updateDisplay()
				return
			}
		}
	}()
}

// StopDisplay draws the final frame and prints the summary.
func (m *Manager) StopDisplay() {
	close(m.doneCh)
	m.displayWg.Wait()
	m.ShowSummary()
}

func (m *Manager) ShowSummary() {
	success, failures := m.Counts()
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	total := len(m.outputs)
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "  "+success2Style.Render(fmt.Sprintf("Completed %d of %d", success, total)))
	if failures > 0 {
		fmt.Fprintln(m.out, "  "+errorStyle.Render(fmt.Sprintf("Failed %d of %d", failures, total)))
	}
	if len(m.errors) == 0 {
		return
	}
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "  "+errorStyle.Bold(true).Render("Errors:"))
	for i, report := range m.errors {
		fmt.Fprintf(m.out, "    %s %s %s\n",
			errorStyle.Render(fmt.Sprintf("%d.", i+1)),
			debugStyle.Render(fmt.Sprintf("[%s]", report.Time.Format("15:04:05"))),
			errorStyle.Render(report.Label))
		fmt.Fprintf(m.out, "      %s\n", errorStyle.Render(fmt.Sprintf("Error: %v", report.Error)))
	}
}
