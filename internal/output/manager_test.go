package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestPlainManager(t *testing.T) {
	var buf bytes.Buffer
	m := NewPlainManager(&buf)

	ok := m.Register("https://example.com/a")
	bad := m.Register("https://example.com/b")
	m.SetMessage(ok, "Resolving link...", 0)
	m.SetMessage(ok, "Downloading... 10.00% at 1.00 MB/s, ETA 9s", 10)
	m.SetMessage(ok, "Downloading... 20.00% at 1.00 MB/s, ETA 8s", 20)
	m.AddStreamLine(ok, "Segment 0 downloaded: 1000 bytes (25.00%)")
	m.SetLabel(ok, "a.mp4")
	m.Complete(ok, "Download completed")
	m.ReportError(bad, errors.New("segment 1 fetch failed"))

	out := buf.String()
	for _, want := range []string{
		"[https://example.com/a] Resolving link...",
		"[https://example.com/a] Segment 0 downloaded: 1000 bytes (25.00%)",
		"[a.mp4] Download completed",
		"[https://example.com/b] error: segment 1 fetch failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Downloading...") {
		t.Errorf("plain output should not repeat throughput lines:\n%s", out)
	}

	success, failed := m.Counts()
	if success != 1 || failed != 1 {
		t.Errorf("Counts() = %d, %d, want 1, 1", success, failed)
	}

	buf.Reset()
	m.StartDisplay()
	m.StopDisplay()
	summary := buf.String()
	if !strings.Contains(summary, "Completed 1 of 2") || !strings.Contains(summary, "Failed 1 of 2") {
		t.Errorf("summary = %q", summary)
	}
}

func TestRenderActiveJob(t *testing.T) {
	m := NewPlainManager(&bytes.Buffer{})
	id := m.Register("job")
	m.SetMessage(id, "Connecting to server...", 0)
	for i := range 8 {
		m.AddStreamLine(id, strings.Repeat("x", i+1))
	}
	lines := m.render()
	// header plus the last maxStreams stream lines
	if len(lines) != 1+m.maxStreams {
		t.Errorf("render() produced %d lines, want %d", len(lines), 1+m.maxStreams)
	}
}

func TestWarnStaysUntilComplete(t *testing.T) {
	var buf bytes.Buffer
	m := NewPlainManager(&buf)
	id := m.Register("clip")
	m.Warn(id, "Server does not advertise ranges, using a single stream")
	m.SetMessage(id, "Downloading... 50.00% at 1.00 MB/s, ETA 2s", 50)

	if status := m.outputs[id].Status; status != "warning" {
		t.Errorf("status after progress = %q, want warning", status)
	}
	if !strings.Contains(buf.String(), "[clip] warning: Server does not advertise ranges") {
		t.Errorf("warning not printed:\n%s", buf.String())
	}
	if lines := m.render(); !strings.Contains(lines[0], StyleSymbols["warning"]) {
		t.Errorf("render() = %q, want warning indicator", lines[0])
	}

	m.Complete(id, "Download completed")
	if success, failed := m.Counts(); success != 1 || failed != 0 {
		t.Errorf("Counts() = %d, %d, want 1, 0", success, failed)
	}
}
