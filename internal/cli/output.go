package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"fraud-monitor/internal/models"
)

// Tone selects how a fragment of monitor output is highlighted.
type Tone int

const (
	Plain Tone = iota
	Good
	Bad
	Caution
	Muted
	Strong
	Note
)

var toneAttrs = map[Tone][]color.Attribute{
	Good:    {color.FgGreen},
	Bad:     {color.FgRed},
	Caution: {color.FgYellow},
	Muted:   {color.Faint},
	Strong:  {color.Bold},
	Note:    {color.FgCyan},
}

// Output writes command results either as JSON or as highlighted text.
// Highlighting is off in JSON mode and when stdout is not a terminal.
type Output struct {
	writer       io.Writer
	jsonMode     bool
	colorEnabled bool
}

func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	w := cmd.OutOrStdout()
	return &Output{
		writer:       w,
		jsonMode:     jsonMode,
		colorEnabled: !jsonMode && isTerminal(w),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (o *Output) IsJSON() bool { return o.jsonMode }

func (o *Output) Writer() io.Writer { return o.writer }

// JSON writes v indented, one document per call.
func (o *Output) JSON(v interface{}) error {
	enc := json.NewEncoder(o.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *Output) Println(args ...interface{}) { fmt.Fprintln(o.writer, args...) }

func (o *Output) Printf(format string, args ...interface{}) { fmt.Fprintf(o.writer, format, args...) }

func (o *Output) Success(format string, args ...interface{}) { o.say(Good, format, args) }

func (o *Output) Error(format string, args ...interface{}) { o.say(Bad, format, args) }

func (o *Output) Warning(format string, args ...interface{}) { o.say(Caution, format, args) }

func (o *Output) Bold(format string, args ...interface{}) { o.say(Strong, format, args) }

func (o *Output) Dim(format string, args ...interface{}) { o.say(Muted, format, args) }

func (o *Output) say(t Tone, format string, args []interface{}) {
	fmt.Fprintln(o.writer, o.Paint(fmt.Sprintf(format, args...), t))
}

// Paint highlights text with t and any extra attributes.
func (o *Output) Paint(text string, t Tone, extra ...color.Attribute) string {
	attrs := append(append([]color.Attribute(nil), toneAttrs[t]...), extra...)
	if !o.colorEnabled || len(attrs) == 0 {
		return text
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(text)
}

// Risk formats a score in the band's tone; high risk is also bold.
func (o *Output) Risk(score float64) string {
	text := FormatRisk(score)
	switch RiskLevel(score) {
	case RiskHigh:
		return o.Paint(text, Bad, color.Bold)
	case RiskMedium:
		return o.Paint(text, Caution)
	default:
		return o.Paint(text, Good)
	}
}

var statusTones = map[models.AlertStatus]Tone{
	models.AlertPending:       Caution,
	models.AlertReviewed:      Note,
	models.AlertResolved:      Good,
	models.AlertFalsePositive: Muted,
}

// Status renders an alert status with a bullet. Unknown statuses print bare.
func (o *Output) Status(status models.AlertStatus) string {
	t, ok := statusTones[status]
	if !ok {
		return string(status)
	}
	return o.Paint("● "+string(status), t)
}

// Table lays out rows in aligned columns. Cells may already carry color
// codes; widths are measured on the visible text.
type Table struct {
	out     *Output
	headers []string
	widths  []int
	rows    [][]string
}

func NewTable(out *Output, headers ...string) *Table {
	t := &Table{out: out, headers: headers, widths: make([]int, len(headers))}
	t.measure(headers)
	return t
}

// AddRow appends a row. Cells beyond the header count are dropped.
func (t *Table) AddRow(cells ...string) {
	if len(cells) > len(t.headers) {
		cells = cells[:len(t.headers)]
	}
	t.measure(cells)
	t.rows = append(t.rows, cells)
}

func (t *Table) measure(cells []string) {
	for i, c := range cells {
		if n := visibleLen(c); n > t.widths[i] {
			t.widths[i] = n
		}
	}
}

func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}
	t.out.Println(t.format(t.headers, Strong))

	rule := make([]string, len(t.widths))
	for i, w := range t.widths {
		rule[i] = strings.Repeat("─", w)
	}
	t.out.Println(t.out.Paint(strings.Join(rule, "──"), Muted))

	for _, row := range t.rows {
		t.out.Println(t.format(row, Plain))
	}
}

func (t *Table) format(cells []string, tone Tone) string {
	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteString("  ")
		}
		cell := c + strings.Repeat(" ", t.widths[i]-visibleLen(c))
		b.WriteString(t.out.Paint(cell, tone))
	}
	return strings.TrimRight(b.String(), " ")
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

func visibleLen(s string) int {
	return utf8.RuneCountInString(stripANSI(s))
}
