package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/atikulmunna/logtally/internal/model"
)

// Reporter writes per-line traces and summary blocks.
type Reporter interface {
	Trace(t model.Trace) error
	Report(s model.Snapshot) error
}

// ---------------------------------------------------------------------------
// Text Reporter
// ---------------------------------------------------------------------------

// TextReporter writes the plain-text trace and summary formats. With color
// enabled, failure markers and summary headers are styled for the terminal.
type TextReporter struct {
	w       io.Writer
	verbose bool
	color   bool

	marker lipgloss.Style
	blank  lipgloss.Style
	header lipgloss.Style
	code   lipgloss.Style
}

// NewTextReporter returns a TextReporter writing to w. verbose adds the line
// count breakdown to every summary.
func NewTextReporter(w io.Writer, verbose, color bool) *TextReporter {
	r := &TextReporter{w: w, verbose: verbose, color: color}
	if !color {
		return r
	}

	re := lipgloss.NewRenderer(w)
	r.marker = re.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red bold
	r.blank = re.NewStyle().Foreground(lipgloss.Color("220"))               // yellow
	r.header = re.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)   // cyan
	r.code = re.NewStyle().Foreground(lipgloss.Color("245"))                // gray
	return r
}

func (r *TextReporter) Trace(t model.Trace) error {
	text := strings.TrimSuffix(t.Line, "\n")

	var line string
	switch {
	case strings.TrimSpace(text) == "":
		line = fmt.Sprintf("%2d.\t%s", t.N, r.paint(r.blank, ">>> BLANK"))
	case t.Result.Outcome == model.Invalid:
		line = fmt.Sprintf("%2d. %s\t%s", t.N, text, r.paint(r.marker, ">>> "+t.Result.Field.String()))
	default:
		line = fmt.Sprintf("%2d. %s", t.N, text)
	}
	_, err := fmt.Fprintln(r.w, line)
	return err
}

func (r *TextReporter) Report(s model.Snapshot) error {
	var b strings.Builder
	if r.verbose {
		fmt.Fprintf(&b, "%s %d", r.paint(r.header, "Total logs:"), s.Lines)
		if s.Invalid > 0 {
			fmt.Fprintf(&b, "\t(valid: %d, invalid: %d)", s.Valid, s.Invalid)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%s %d\n", r.paint(r.header, "File size:"), s.TotalBytes)
	for _, c := range s.Codes {
		fmt.Fprintf(&b, "%s %d\n", r.paint(r.code, fmt.Sprintf("%d:", c.Code)), c.Count)
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *TextReporter) paint(st lipgloss.Style, s string) string {
	if !r.color {
		return s
	}
	return st.Render(s)
}

// ---------------------------------------------------------------------------
// JSON Reporter (structured output for piping)
// ---------------------------------------------------------------------------

// JSONReporter writes each trace and summary as a single JSON object per line.
type JSONReporter struct {
	enc *json.Encoder
}

func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w)}
}

type jsonTrace struct {
	Type string `json:"type"`
	model.Trace
}

type jsonSummary struct {
	Type string `json:"type"`
	model.Snapshot
}

func (r *JSONReporter) Trace(t model.Trace) error {
	t.Line = strings.TrimSuffix(t.Line, "\n")
	return r.enc.Encode(jsonTrace{Type: "trace", Trace: t})
}

func (r *JSONReporter) Report(s model.Snapshot) error {
	return r.enc.Encode(jsonSummary{Type: "summary", Snapshot: s})
}

// New picks a reporter by format name ("text" or "json").
func New(format string, w io.Writer, verbose, color bool) (Reporter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return NewTextReporter(w, verbose, color), nil
	case "json":
		return NewJSONReporter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text or json)", format)
	}
}
