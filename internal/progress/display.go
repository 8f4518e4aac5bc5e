package progress

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Display renders batch progress to the terminal on an interval.
type Display struct {
	tracker   *Tracker
	interval  time.Duration
	stopCh    chan struct{}
	lastLines int
}

// NewDisplay creates a new progress display
func NewDisplay(tracker *Tracker, interval time.Duration) *Display {
	return &Display{
		tracker:  tracker,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the progress display
func (d *Display) Start() {
	go d.displayLoop()
}

// Stop stops the progress display
func (d *Display) Stop() {
	close(d.stopCh)
}

func (d *Display) displayLoop() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.updateDisplay()
		case <-d.stopCh:
			d.finalDisplay()
			return
		}
	}
}

func (d *Display) updateDisplay() {
	status := d.tracker.GetStatus()
	lines := d.generateDisplay(status)

	d.clearLines()
	fmt.Print(strings.Join(lines, "\n"))
	d.lastLines = len(lines)
}

func (d *Display) finalDisplay() {
	d.clearLines()
	status := d.tracker.GetStatus()
	lines := d.generateFinalDisplay(status)
	fmt.Println(strings.Join(lines, "\n"))
}

func (d *Display) clearLines() {
	if d.lastLines > 0 {
		fmt.Print("\n")
	}
}

func (d *Display) generateDisplay(status Status) []string {
	lines := make([]string, 0)

	lines = append(lines, "")
	lines = append(lines, "Gallery upload progress")
	lines = append(lines, strings.Repeat("=", 51))

	done := status.UploadedFiles + status.FailedFiles
	filesPercent := d.tracker.GetFilesPercent()
	lines = append(lines, fmt.Sprintf("Files: %d/%d (%.1f%%)  active: %d  pending: %d",
		done, status.TotalFiles, filesPercent, status.ActiveFiles, status.PendingFiles))
	lines = append(lines, fmt.Sprintf("    %s", d.generateProgressBar(filesPercent, 40)))

	bytesPercent := d.tracker.GetBytesPercent()
	lines = append(lines, fmt.Sprintf("Data:  %s/%s (%.1f%%)",
		FormatBytes(status.TransferredBytes), FormatBytes(status.TotalBytes), bytesPercent))
	lines = append(lines, fmt.Sprintf("    %s", d.generateProgressBar(bytesPercent, 40)))

	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("  uploaded: %d  failed: %d", status.UploadedFiles, status.FailedFiles))
	lines = append(lines, fmt.Sprintf("  speed: %s (avg %s)",
		FormatSpeed(status.CurrentSpeed), FormatSpeed(status.AverageSpeed)))

	elapsed := time.Since(status.StartTime)
	lines = append(lines, fmt.Sprintf("  elapsed: %s  remaining: %s",
		FormatDuration(elapsed), FormatDuration(status.ETA)))
	lines = append(lines, "")

	return lines
}

func (d *Display) generateFinalDisplay(status Status) []string {
	lines := make([]string, 0)

	elapsed := time.Since(status.StartTime)

	lines = append(lines, "")
	lines = append(lines, "Upload finished")
	lines = append(lines, strings.Repeat("=", 51))
	lines = append(lines, fmt.Sprintf("  files:    %d", status.UploadedFiles+status.FailedFiles))
	lines = append(lines, fmt.Sprintf("  data:     %s", FormatBytes(status.TransferredBytes)))
	lines = append(lines, fmt.Sprintf("  uploaded: %d", status.UploadedFiles))
	lines = append(lines, fmt.Sprintf("  failed:   %d", status.FailedFiles))
	lines = append(lines, fmt.Sprintf("  elapsed:  %s", FormatDuration(elapsed)))
	lines = append(lines, fmt.Sprintf("  speed:    %s", FormatSpeed(status.AverageSpeed)))
	lines = append(lines, "")

	return lines
}

func (d *Display) generateProgressBar(percent float64, width int) string {
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}

	filled := int(percent * float64(width) / 100)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	return fmt.Sprintf("[%s] %.1f%%", bar, percent)
}

// IsTerminalSupported checks if the terminal supports progress display
func IsTerminalSupported() bool {
	if fileInfo, _ := os.Stdout.Stat(); (fileInfo.Mode() & os.ModeCharDevice) == 0 {
		return false
	}
	return true
}
