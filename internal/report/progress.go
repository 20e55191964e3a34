package report

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/violenttestpen/mtime/internal/runner"
)

const (
	progressDoneRune    = "█"
	progressPendingRune = "▒"

	// room for the brackets and the ETA suffix
	progressReserved = 2 + 12
)

// Progress draws a single, continuously rewritten status line with the
// running mean wall time, a bar and an ETA.
type Progress struct {
	w        io.Writer
	width    func() int
	estimate time.Duration
}

// NewProgress returns a Progress writing to w. width reports the current
// terminal width in columns.
func NewProgress(w io.Writer, width func() int) *Progress {
	return &Progress{w: w, width: width}
}

// Update is a runner.ProgressFunc.
func (p *Progress) Update(done, total int, m runner.RunMetrics) {
	p.estimate = (p.estimate*time.Duration(done-1) + m.Wall) / time.Duration(done)
	eta := p.estimate * time.Duration(total-done)

	clearCurrentLine(p.w)
	estimate := FormatDuration(p.estimate)
	line := fmt.Sprintf("Current estimate: %s ", color.GreenString(estimate))
	width := utf8.RuneCountInString(fmt.Sprintf("Current estimate: %s ", estimate))
	p.printLine(line, width, float64(done)/float64(total), eta)
}

// Done clears the status line.
func (p *Progress) Done() {
	clearCurrentLine(p.w)
}

// printLine writes line followed by the bar. lineWidth is the number of
// columns line occupies, without colour escapes.
func (p *Progress) printLine(line string, lineWidth int, progress float64, eta time.Duration) {
	barWidth := p.width() - lineWidth - progressReserved
	if barWidth < 0 {
		barWidth = 0
	}
	chunks := int(progress * float64(barWidth))
	bar := strings.Repeat(progressDoneRune, chunks) + strings.Repeat(progressPendingRune, barWidth-chunks)

	fmt.Fprintf(p.w, "%s %s ETA %02d:%02d:%02d", line, bar,
		int64(eta.Hours()), int64(eta.Minutes())%60, int64(eta.Seconds())%60)
}

func clearCurrentLine(w io.Writer) {
	w.Write([]byte("\r\033[K"))
}
