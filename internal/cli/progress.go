package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/sift/internal/commit"
)

// ProgressObserver draws a progress bar while a plan is committed.
type ProgressObserver struct {
	bar *progressbar.ProgressBar
	mu  sync.Mutex
}

var _ commit.Observer = (*ProgressObserver)(nil)

// NewProgressObserver creates a bar for total container and item writes.
func NewProgressObserver(w io.Writer, total int) *ProgressObserver {
	return &ProgressObserver{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]Committing...[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				if _, err := fmt.Fprintln(w); err != nil {
					slog.Warn("Failed to write newline after progress bar", "error", err)
				}
			}),
		),
	}
}

// ContainerCreated implements commit.Observer.
func (o *ProgressObserver) ContainerCreated(string, string) {
	o.advance()
}

// ItemCommitted implements commit.Observer.
func (o *ProgressObserver) ItemCommitted(string, string) {
	o.advance()
}

// ItemFailed implements commit.Observer. Failures are reported with the result.
func (o *ProgressObserver) ItemFailed(string, error) {
	o.advance()
}

// Finish completes the bar.
func (o *ProgressObserver) Finish() {
	if err := o.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}

func (o *ProgressObserver) advance() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.bar.Add(1); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}
