package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gravitrone/ledgerdesk/internal/preview"
	"github.com/gravitrone/ledgerdesk/internal/ui/components"
)

var previewBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder).
	Padding(1, 2)

const (
	previewWidthPercent = 40
	previewMinWidth     = 38
	previewMaxWidth     = 64
	previewErrorRows    = 3
)

// PreviewPane shows the live preview state for one document and maps
// the viewer keys onto the scheduler.
type PreviewPane struct {
	scheduler *preview.Scheduler
	spinner   spinner.Model
	spinning  bool
	width     int
}

func NewPreviewPane(scheduler *preview.Scheduler) *PreviewPane {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = AccentStyle
	return &PreviewPane{scheduler: scheduler, spinner: s}
}

func (p *PreviewPane) SetWidth(width int) {
	p.width = width
}

// HandlesKey reports whether msg is a viewer key.
func (p *PreviewPane) HandlesKey(msg tea.KeyMsg) bool {
	return isKey(msg, "+", "=", "-", "g", "f", "r", "x")
}

// Update feeds scheduler messages and viewer keys. It keeps the spinner
// ticking while a render is in flight.
func (p *PreviewPane) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !p.scheduler.InFlight() {
			p.spinning = false
			return nil
		}
		p.spinner, cmd = p.spinner.Update(msg)
		return cmd
	case tea.KeyMsg:
		cmd = p.handleKey(msg)
	default:
		cmd = p.scheduler.Update(msg)
	}
	return tea.Batch(cmd, p.spin())
}

func (p *PreviewPane) handleKey(msg tea.KeyMsg) tea.Cmd {
	s := p.scheduler
	switch {
	case isKey(msg, "+", "="):
		return s.Zoom(preview.ZoomStep)
	case isKey(msg, "-"):
		return s.Zoom(-preview.ZoomStep)
	case isKey(msg, "g"):
		return s.ToggleGrid()
	case isKey(msg, "f"):
		return s.CycleFormat()
	case isKey(msg, "r"):
		return s.Refresh()
	case isKey(msg, "x"):
		s.DismissError()
	}
	return nil
}

// Refresh renders right away, used when the pane becomes visible.
func (p *PreviewPane) Refresh() tea.Cmd {
	return tea.Batch(p.scheduler.Refresh(), p.spin())
}

func (p *PreviewPane) spin() tea.Cmd {
	if p.spinning || !p.scheduler.InFlight() {
		return nil
	}
	p.spinning = true
	return p.spinner.Tick
}

func (p *PreviewPane) View() string {
	width := preferredPreviewWidth(p.width)
	inner := previewBoxContentWidth(width)
	s := p.scheduler

	lines := []string{MetaKeyStyle.Render("Preview")}
	lines = append(lines, p.statusLine())

	opts := s.Options()
	lines = append(lines,
		renderPreviewRow("Zoom", fmt.Sprintf("%d%%", opts.Zoom), inner),
		renderPreviewRow("Format", strings.ToUpper(opts.Format), inner),
		renderPreviewRow("Grid", onOff(opts.ShowGrid), inner),
	)

	if url := s.URL(); url != "" {
		lines = append(lines, "")
		lines = append(lines, renderPreviewRow("Updated", s.UpdatedAt().Format("15:04:05"), inner))
		for _, row := range wrapPreviewText(url, inner) {
			lines = append(lines, BlueStyle.Render(row))
		}
	} else if !s.HasDocument() {
		lines = append(lines, "", MutedStyle.Render("Nothing to preview yet."))
	}

	if s.Exhausted() {
		lines = append(lines, "", p.errorPanel(inner))
	}

	lines = append(lines, "", MutedStyle.Render("+/- zoom  g grid  f format  r refresh"))
	return renderPreviewBox(padPreviewLines(lines, inner), width)
}

func (p *PreviewPane) statusLine() string {
	s := p.scheduler
	switch s.State() {
	case preview.Generating:
		return p.spinner.View() + " " + AccentStyle.Render("Generating...")
	case preview.Retrying:
		return WarningStyle.Render(fmt.Sprintf("Retrying (%d/%d)", s.RetryCount(), s.MaxRetries()))
	case preview.Scheduled:
		return MutedStyle.Render("Waiting for edits to settle")
	}
	if s.Exhausted() {
		return ErrorStyle.Render("Preview unavailable")
	}
	return SuccessStyle.Render("Up to date")
}

func (p *PreviewPane) errorPanel(width int) string {
	s := p.scheduler
	lines := []string{ErrorStyle.Render("Preview generation failed")}
	if err := s.LastError(); err != nil {
		for _, row := range wrapPreviewText(err.Error(), width) {
			lines = append(lines, MutedStyle.Render(row))
		}
	}
	entries := s.Errors()
	if len(entries) > previewErrorRows {
		entries = entries[len(entries)-previewErrorRows:]
	}
	for _, e := range entries {
		lines = append(lines, renderPreviewRow(e.At.Format("15:04:05"), e.Message, width))
	}
	lines = append(lines, MutedStyle.Render(fmt.Sprintf("%d errors total  x dismiss", s.ErrorCount())))
	return strings.Join(lines, "\n")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// --- Layout helpers ---

func preferredPreviewWidth(contentWidth int) int {
	if contentWidth <= 0 {
		return previewMinWidth
	}
	return min(max(contentWidth*previewWidthPercent/100, previewMinWidth), previewMaxWidth)
}

func previewBoxContentWidth(width int) int {
	if width <= 0 {
		return 0
	}
	return max(width-previewBoxStyle.GetHorizontalFrameSize(), 10)
}

func renderPreviewBox(content string, width int) string {
	if width <= 0 {
		return ""
	}
	// Style.Width includes padding but not borders.
	borderW := previewBoxStyle.GetBorderLeftSize() + previewBoxStyle.GetBorderRightSize()
	return previewBoxStyle.Width(max(width-borderW, 1)).Render(content)
}

func wrapPreviewText(text string, width int) []string {
	text = components.SanitizeOneLine(text)
	if width <= 0 || text == "" {
		return nil
	}
	if lipgloss.Width(text) <= width {
		return []string{text}
	}

	var out []string
	var line strings.Builder
	lineW := 0
	for _, r := range text {
		rw := max(lipgloss.Width(string(r)), 1)
		if lineW+rw > width && lineW > 0 {
			out = append(out, strings.TrimRight(line.String(), " "))
			line.Reset()
			lineW = 0
			if r == ' ' {
				continue
			}
		}
		line.WriteRune(r)
		lineW += rw
	}
	if line.Len() > 0 {
		out = append(out, strings.TrimRight(line.String(), " "))
	}
	return out
}

func renderPreviewRow(label, value string, width int) string {
	label = components.SanitizeOneLine(label)
	prefixWidth := lipgloss.Width(label) + 2
	value = components.ClampTextWidthEllipsis(value, max(width-prefixWidth, 4))
	return MetaKeyStyle.Render(label) + MetaPunctStyle.Render(": ") + MetaValueStyle.Render(value)
}

func padPreviewLines(lines []string, width int) string {
	if width <= 0 || len(lines) == 0 {
		return ""
	}
	padded := make([]string, 0, len(lines))
	for _, block := range lines {
		for _, line := range strings.Split(block, "\n") {
			if lipgloss.Width(line) > width {
				line = components.ClampTextWidth(components.SanitizeText(line), width)
			}
			if w := lipgloss.Width(line); w < width {
				line += strings.Repeat(" ", width-w)
			}
			padded = append(padded, line)
		}
	}
	return strings.Join(padded, "\n")
}
