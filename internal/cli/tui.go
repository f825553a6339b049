package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/erdiagram/pkg/pipeline"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

func (c *CLI) browseCommand() *cobra.Command {
	var inferFK bool

	cmd := &cobra.Command{
		Use:   "browse <schema>",
		Short: "Explore a schema's entities interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("infer-fk") {
				inferFK = c.config.InferForeignKeys
			}
			doc, err := c.buildDocument(cmd.Context(), args[0], inferFK, false)
			if err != nil {
				return err
			}
			p := tea.NewProgram(NewEntityBrowserModel(args[0], doc), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&inferFK, "infer-fk", false, "link <entity>_id and <entity>_idx fields to their entity")
	return cmd
}

// EntityBrowserModel is the bubbletea model behind erd browse. The list view
// shows every entity; enter opens a detail view with its fields, outgoing
// anchors and incoming edges.
type EntityBrowserModel struct {
	Title    string
	Doc      *pipeline.Document
	Cursor   int
	Offset   int
	Height   int
	Detail   bool
	Quitting bool
}

// NewEntityBrowserModel creates a browser positioned on the first entity.
func NewEntityBrowserModel(title string, doc *pipeline.Document) EntityBrowserModel {
	return EntityBrowserModel{Title: title, Doc: doc, Height: 15}
}

func (m EntityBrowserModel) Init() tea.Cmd {
	return nil
}

func (m EntityBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Quitting = true
			return m, tea.Quit
		case "esc", "backspace", "left", "h":
			if m.Detail {
				m.Detail = false
				return m, nil
			}
			if msg.String() == "esc" {
				m.Quitting = true
				return m, tea.Quit
			}
		case "up", "k":
			if !m.Detail && m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if !m.Detail && m.Cursor < len(m.Doc.Entities)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter", "right", "l":
			if len(m.Doc.Entities) > 0 {
				m.Detail = true
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m EntityBrowserModel) View() string {
	if m.Quitting {
		return ""
	}
	if m.Detail {
		return m.detailView()
	}
	return m.listView()
}

func (m EntityBrowserModel) listView() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ details  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Doc.Entities))
	for i := m.Offset; i < end; i++ {
		e := m.Doc.Entities[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		line := fmt.Sprintf("%s%-24s %s", cursor, e.Name,
			listDimStyle.Render(fmt.Sprintf("%s · %s",
				plural(len(e.Fields), "field", "fields"),
				fmt.Sprintf("%d incoming", len(m.Doc.Incoming(e.Name))))))
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Doc.Entities))))
	return b.String()
}

func (m EntityBrowserModel) detailView() string {
	e := m.Doc.Entities[m.Cursor]
	var b strings.Builder

	b.WriteString(StyleTitle.Render(e.Name))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("← back  q quit"))
	b.WriteString("\n\n")

	fields := newTable("Field", "Anchor")
	for _, f := range e.Fields {
		fields.Row(f, e.Name+":"+f)
	}
	b.WriteString(fields.Render())
	b.WriteString("\n")

	writeEdges(&b, "Outgoing", e.Relations)
	writeEdges(&b, "Incoming", m.Doc.Incoming(e.Name))
	return b.String()
}

func writeEdges(b *strings.Builder, title string, edges []pipeline.EdgeInfo) {
	b.WriteString("\n")
	b.WriteString(StyleHighlight.Render(title))
	b.WriteString("\n")
	if len(edges) == 0 {
		b.WriteString(listDimStyle.Render("  none"))
		b.WriteString("\n")
		return
	}
	for _, e := range edges {
		b.WriteString("  " + e.From + " " + StyleDim.Render(iconArrow) + " " + e.To + "\n")
	}
}
