package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/samvad-hq/samvad-probe/internal/prober"
)

const maxDetailLen = 60

type palette struct {
	head *color.Color
	up   *color.Color
	down *color.Color
	dim  *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		head: color.New(color.FgWhite, color.Bold),
		up:   color.New(color.FgGreen, color.Bold),
		down: color.New(color.FgRed, color.Bold),
		dim:  color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{p.head, p.up, p.down, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// writeReport prints one row per outcome followed by a summary line. Colored
// cells in the state column share one escape length so tabwriter keeps the
// columns aligned.
func writeReport(w io.Writer, report *prober.Report, p palette) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "TARGET\t%s\tSTATUS\tLATENCY\tDETAIL\n", p.head.Sprint("STATE"))
	for _, o := range report.Outcomes {
		state := p.up.Sprint(strings.ToUpper(o.State))
		if !o.Up() {
			state = p.down.Sprint(strings.ToUpper(o.State))
		}
		status := "-"
		if o.StatusCode > 0 {
			status = fmt.Sprintf("%d", o.StatusCode)
		}
		detail := o.Kind
		if o.Detail != "" {
			detail = fmt.Sprintf("%s: %s", o.Kind, truncate(o.Detail, maxDetailLen))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.TargetID, state, status, formatLatency(o.Latency), p.dim.Sprint(detail))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d up, %d down  p50 %s  p95 %s  p99 %s\n",
		report.Up, report.Down,
		formatLatency(report.P50), formatLatency(report.P95), formatLatency(report.P99))
	return err
}

func formatLatency(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
