package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/c360studio/promptcheck/check"
	"github.com/c360studio/promptcheck/reference"
)

// styles holds the report styles for one output. The renderer inspects the
// writer, so output to a pipe or file is plain text.
type styles struct {
	Heading lipgloss.Style
	Success lipgloss.Style
	Failure lipgloss.Style
	Warning lipgloss.Style
	Item    lipgloss.Style
	Subtle  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		Heading: r.NewStyle().Bold(true),
		Success: r.NewStyle().
			Foreground(lipgloss.Color("#00E6B8")).
			Bold(true),
		Failure: r.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true),
		Warning: r.NewStyle().
			Foreground(lipgloss.Color("#FFD75F")).
			Bold(true),
		Item: r.NewStyle().
			Foreground(lipgloss.Color("#AD8CFF")),
		Subtle: r.NewStyle().
			Foreground(lipgloss.Color("#777777")).
			Faint(true),
	}
}

// Text writes the human-readable report.
type Text struct {
	// Verbose adds the reference locations of every missing identifier.
	Verbose bool
}

// Write renders rep to w. Identical reports render to identical bytes.
func (t Text) Write(w io.Writer, rep *check.Report, policy Policy) error {
	st := newStyles(w)
	var b strings.Builder

	fmt.Fprintf(&b, "%s %d\n", st.Heading.Render("Defined prompts (count):"), rep.DeclaredCount)
	fmt.Fprintf(&b, "%s %d\n", st.Heading.Render("Referenced prompts (count):"), rep.ReferencedCount)

	if rep.Malformed != "" {
		b.WriteString("\n")
		b.WriteString(st.Failure.Render("❌ Prompt registry declaration is malformed:"))
		b.WriteString("\n")
		fmt.Fprintf(&b, " - %s\n", rep.Malformed)
	}

	if len(rep.Duplicates) > 0 {
		b.WriteString("\n")
		if policy.AllowDuplicates {
			b.WriteString(st.Warning.Render("⚠️ Duplicate prompt keys (first declaration wins):"))
		} else {
			b.WriteString(st.Failure.Render("❌ Duplicate prompt keys:"))
		}
		b.WriteString("\n")
		for _, d := range rep.Duplicates {
			fmt.Fprintf(&b, " - %s %s\n", st.Item.Render(string(d.ID)),
				st.Subtle.Render(fmt.Sprintf("(line %d, first declared on line %d)", d.Line, d.FirstLine)))
		}
	}

	if len(rep.Missing) == 0 {
		if rep.Malformed == "" {
			b.WriteString("\n")
			b.WriteString(st.Success.Render("✅ All referenced prompt keys are defined" + registryName(rep)))
			b.WriteString("\n")
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString("\n")
	b.WriteString(st.Failure.Render("❌ Missing prompt keys:"))
	b.WriteString("\n")
	for _, id := range rep.Missing {
		fmt.Fprintf(&b, " - %s", st.Item.Render(string(id)))
		if t.Verbose {
			if sites := rep.SitesOf(id); len(sites) > 0 {
				b.WriteString(" " + st.Subtle.Render("("+formatSites(sites)+")"))
			}
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func registryName(rep *check.Report) string {
	if rep.Registry == "" {
		return ""
	}
	return " in " + rep.Registry
}

// formatSites joins sites as "chat.js:5 lookup, chat.js:9 accumulate".
func formatSites(sites []reference.Site) string {
	parts := make([]string, 0, len(sites))
	for _, s := range sites {
		parts = append(parts, fmt.Sprintf("%s:%d %s", s.Path, s.Line, s.Form))
	}
	return strings.Join(parts, ", ")
}
