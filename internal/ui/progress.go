package ui

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Pre-computed progress bars to avoid string allocations while redrawing.
var progressBars [21]string

func init() {
	for i := 0; i <= 20; i++ {
		progressBars[i] = strings.Repeat("=", i) + strings.Repeat(" ", 20-i)
	}
}

// ProgressBar renders a single-line upload progress display driven by chunk
// completion events rather than a byte stream.
type ProgressBar struct {
	Out       io.Writer
	Total     int64 // total bytes, 0 when unknown
	StartTime time.Time
}

// Update redraws the bar for the given uploaded byte count.
func (p *ProgressBar) Update(uploaded int64) {
	if p.Out == nil {
		return
	}
	if p.StartTime.IsZero() {
		p.StartTime = time.Now()
	}

	elapsed := time.Since(p.StartTime)

	if p.Total <= 0 {
		_, _ = fmt.Fprintf(p.Out, "\r%s uploaded | Time: %s",
			FormatBytes(uploaded), FormatDuration(elapsed))
		return
	}

	pct := float64(uploaded) / float64(p.Total) * 100.0

	var etaStr string
	if uploaded > 0 && elapsed.Seconds() > 0.5 {
		rate := float64(uploaded) / elapsed.Seconds()
		remaining := p.Total - uploaded
		if rate > 0 {
			etaStr = FormatETA(time.Duration(float64(remaining) / rate * float64(time.Second)))
		}
	}

	speedStr := ""
	if elapsed.Seconds() > 0 {
		speedStr = FormatSpeed(float64(uploaded) / elapsed.Seconds())
	}

	if etaStr != "" && speedStr != "" {
		_, _ = fmt.Fprintf(p.Out, "\r[%-20s] %3.0f%% | %s/%s | %s | Time: %s | ETA: %s",
			bar(pct), pct, FormatBytes(uploaded), FormatBytes(p.Total),
			speedStr, FormatDuration(elapsed), etaStr)
	} else if speedStr != "" {
		_, _ = fmt.Fprintf(p.Out, "\r[%-20s] %3.0f%% | %s/%s | %s | Time: %s",
			bar(pct), pct, FormatBytes(uploaded), FormatBytes(p.Total),
			speedStr, FormatDuration(elapsed))
	} else {
		_, _ = fmt.Fprintf(p.Out, "\r[%-20s] %3.0f%% | %s/%s",
			bar(pct), pct, FormatBytes(uploaded), FormatBytes(p.Total))
	}
}

// Finish terminates the progress line.
func (p *ProgressBar) Finish() {
	if p.Out != nil {
		_, _ = fmt.Fprintln(p.Out)
	}
}

// bar selects the pre-computed bar for a percentage.
func bar(pct float64) string {
	filled := int(pct / 5)
	if filled < 0 {
		filled = 0
	}
	if filled > 20 {
		filled = 20
	}
	return progressBars[filled]
}
