package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/erdiagram/pkg/pipeline"
)

var (
	colorCyan   = lipgloss.Color("36")  // primary
	colorGreen  = lipgloss.Color("35")  // success
	colorYellow = lipgloss.Color("220") // warnings
	colorRed    = lipgloss.Color("167") // errors
	colorBlue   = lipgloss.Color("75")  // commands
	colorWhite  = lipgloss.Color("255") // values
	colorGray   = lipgloss.Color("245") // secondary text
	colorDim    = lipgloss.Color("240") // muted text
)

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleCommand  = lipgloss.NewStyle().Foreground(colorBlue)

	styleTableHeader = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	styleTableCell   = lipgloss.NewStyle().Foreground(colorWhite).Padding(0, 1)
	styleTableBorder = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints an output file line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// formatStats renders diagram statistics on a single line.
func formatStats(stats pipeline.Stats, cached bool) string {
	parts := []string{
		plural(stats.EntityCount, "entity", "entities"),
		plural(stats.EdgeCount, "edge", "edges"),
	}
	if stats.PendingCount > 0 {
		parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d pending", stats.PendingCount)))
	}

	status, statusStyle := iconFresh, styleComputed
	if cached {
		status, statusStyle = iconCached, styleCached
	}
	parts = append(parts, statusStyle.Render(status))

	for i, p := range parts {
		parts[i] = StyleDim.Render(p)
	}
	return "  " + strings.Join(parts, StyleDim.Render(" · "))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// newTable returns a lipgloss table with the shared header and cell styles.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleTableBorder).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleTableHeader
			}
			return styleTableCell
		})
}

// entityTable lists each entity with its fields and outgoing anchors.
func entityTable(doc *pipeline.Document) string {
	t := newTable("Entity", "Fields", "Relations")
	for _, e := range doc.Entities {
		var rels []string
		for _, r := range e.Relations {
			rels = append(rels, r.From+" "+iconArrow+" "+r.To)
		}
		t.Row(e.Name, strings.Join(e.Fields, ", "), strings.Join(rels, "\n"))
	}
	return t.Render()
}

// edgeTable lists materialized edges in emission order, followed by any
// edges still waiting on an entity.
func edgeTable(doc *pipeline.Document) string {
	t := newTable("#", "From", "To", "Status")
	for i, e := range doc.Edges {
		t.Row(fmt.Sprint(i+1), e.From, e.To, "drawn")
	}
	for _, e := range doc.Pending {
		t.Row("-", e.From, e.To, "waiting on "+e.BlockedOn)
	}
	return t.Render()
}
