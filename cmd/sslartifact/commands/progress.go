package commands

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/vulntor/sslartifact/pkg/artifact"
	"github.com/vulntor/sslartifact/pkg/jobstore"
	"github.com/vulntor/sslartifact/pkg/stringutil"
)

// progressPrinter prints one line when a target starts and one when it
// stops. Workers call OnEvent concurrently.
type progressPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	total  int
	done   int
	styles progressStyles
}

type progressStyles struct {
	counter lipgloss.Style
	start   lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	subtle  lipgloss.Style
}

func newProgressPrinter(w io.Writer, total int, colored bool) *progressPrinter {
	p := &progressPrinter{w: w, total: total}
	if !colored {
		plain := lipgloss.NewStyle()
		p.styles = progressStyles{plain, plain, plain, plain, plain, plain}
		return p
	}

	r := lipgloss.NewRenderer(w)
	p.styles = progressStyles{
		counter: r.NewStyle().Foreground(lipgloss.Color("240")),
		start:   r.NewStyle().Foreground(lipgloss.Color("75")),
		success: r.NewStyle().Foreground(lipgloss.Color("42")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("214")),
		err:     r.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		subtle:  r.NewStyle().Foreground(lipgloss.Color("240")),
	}
	return p
}

func (p *progressPrinter) OnEvent(ev artifact.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Phase {
	case artifact.PhaseStart:
		_, _ = fmt.Fprintf(p.w, "%s %s %s\n",
			p.styles.counter.Render(p.counter()),
			p.styles.start.Render("start"),
			ev.Target)
	case artifact.PhaseStop:
		p.done++
		label, style := p.statusLabel(ev)
		line := fmt.Sprintf("%s %s %s",
			p.styles.counter.Render(p.counter()),
			style.Render(label),
			ev.Target)
		if ev.Err != nil {
			line += " " + p.styles.subtle.Render(stringutil.Ellipsis(ev.Err.Error(), 100))
		}
		_, _ = fmt.Fprintln(p.w, line)
	}
}

func (p *progressPrinter) counter() string {
	return fmt.Sprintf("[%d/%d]", p.done, p.total)
}

func (p *progressPrinter) statusLabel(ev artifact.ProgressEvent) (string, lipgloss.Style) {
	if ev.Err != nil {
		return "failed", p.styles.err
	}
	switch ev.Status {
	case jobstore.StatusCompleted:
		return "done", p.styles.success
	case jobstore.StatusTimeout:
		return "timeout", p.styles.warn
	default:
		return string(ev.Status), p.styles.subtle
	}
}
