// Package output prints hop entries for people and for scripts.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/pbaille/hop/internal/domain"
)

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Paths writes one path per line
func Paths(w io.Writer, rs []domain.Scored) error {
	bw := bufio.NewWriter(w)
	for _, r := range rs {
		if _, err := fmt.Fprintln(bw, r.Path); err != nil {
			return fmt.Errorf("write path: %w", err)
		}
	}
	return bw.Flush()
}

type jsonEntry struct {
	Path        string    `json:"path"`
	Visits      int64     `json:"visits"`
	LastVisited time.Time `json:"last_visited"`
	Frecency    float64   `json:"frecency"`
}

// JSON writes one JSON object per line
func JSON(w io.Writer, rs []domain.Scored) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, r := range rs {
		err := enc.Encode(jsonEntry{
			Path:        r.Path,
			Visits:      r.Visits,
			LastVisited: r.LastVisited.UTC(),
			Frecency:    r.FrecencyScore,
		})
		if err != nil {
			return fmt.Errorf("encode entry: %w", err)
		}
	}
	return bw.Flush()
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	pathStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	plainStyle  = lipgloss.NewStyle()
)

// Table writes an aligned table with relative visit times as seen from now.
// styled adds colors and should only be set for terminals.
func Table(w io.Writer, rs []domain.Scored, now time.Time, styled bool) error {
	header := []string{"FRECENCY", "VISITS", "LAST VISIT", "PATH"}
	rows := make([][]string, len(rs))
	for i, r := range rs {
		rows[i] = []string{
			fmt.Sprintf("%.2f", r.FrecencyScore),
			humanize.Comma(r.Visits),
			humanize.RelTime(r.LastVisited, now, "ago", "from now"),
			r.Path,
		}
	}

	widths := make([]int, len(header))
	for _, row := range append([][]string{header}, rows...) {
		for c, cell := range row {
			widths[c] = max(widths[c], lipgloss.Width(cell))
		}
	}

	styles := []lipgloss.Style{plainStyle, plainStyle, plainStyle, plainStyle}
	head := plainStyle
	if styled {
		styles = []lipgloss.Style{plainStyle, plainStyle, dimStyle, pathStyle}
		head = headerStyle
	}

	var b strings.Builder
	b.WriteString(formatRow(header, widths, []lipgloss.Style{head, head, head, head}))
	for _, row := range rows {
		b.WriteString(formatRow(row, widths, styles))
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}

// formatRow right-aligns the numeric columns and pads the rest. The last
// column is never padded.
func formatRow(cells []string, widths []int, styles []lipgloss.Style) string {
	parts := make([]string, len(cells))
	for c, cell := range cells {
		pad := strings.Repeat(" ", widths[c]-lipgloss.Width(cell))
		switch {
		case c < 2:
			parts[c] = pad + styles[c].Render(cell)
		case c == len(cells)-1:
			parts[c] = styles[c].Render(cell)
		default:
			parts[c] = styles[c].Render(cell) + pad
		}
	}
	return strings.Join(parts, "  ") + "\n"
}
