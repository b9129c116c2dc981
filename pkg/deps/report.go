package deps

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText  = "text"
	FormatPlain = "plain"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Messages shown in place of an install command.
const (
	msgNoneDetected   = "No external libraries detected."
	msgNothingToAdd   = "No external libraries need to be installed."
	headingDetected   = "Detected external libraries:"
	headingInstallCmd = "Installation command:"
)

// ErrUnsupportedFormat indicates an unknown output format.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Formats lists the accepted output formats.
func Formats() []string {
	return []string{FormatText, FormatPlain, FormatJSON, FormatYAML}
}

// Report is the rendered outcome of one analysis.
type Report struct {
	Source   string   `json:"source"             yaml:"source"`
	Language string   `json:"language,omitempty" yaml:"language,omitempty"`
	Mode     string   `json:"mode"               yaml:"mode"`
	Python   string   `json:"python"             yaml:"python"`
	Imports  []string `json:"imports"            yaml:"imports"`
	External []string `json:"external"           yaml:"external"`
	Command  string   `json:"command,omitempty"  yaml:"command,omitempty"`
}

// HasCommand reports whether there is anything to install.
func (r Report) HasCommand() bool {
	return r.Command != ""
}

// PlainText renders the report the way it is saved to disk. The text has
// no trailing newline.
func (r Report) PlainText() string {
	if len(r.External) == 0 {
		return msgNoneDetected
	}

	var sb strings.Builder

	sb.WriteString(headingDetected + "\n\n")

	for _, name := range r.External {
		sb.WriteString("- " + name + "\n")
	}

	sb.WriteString("\n\n" + headingInstallCmd + "\n")

	if r.HasCommand() {
		sb.WriteString(r.Command)
	} else {
		sb.WriteString(msgNothingToAdd)
	}

	return sb.String()
}

// Write renders the report in the given format.
func Write(w io.Writer, r Report, format string, noColor bool) error {
	switch format {
	case FormatText, "":
		return WriteTerminal(w, r, noColor)
	case FormatPlain:
		return writeString(w, r.PlainText()+"\n")
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatYAML:
		return WriteYAML(w, r)
	default:
		return fmt.Errorf("%w: %s (want one of %s)", ErrUnsupportedFormat, format, strings.Join(Formats(), ", "))
	}
}

// WriteTerminal renders a colored summary with a package table.
func WriteTerminal(w io.Writer, r Report, noColor bool) error {
	heading := newColor(noColor, color.FgCyan, color.Bold)
	good := newColor(noColor, color.FgGreen)
	warn := newColor(noColor, color.FgYellow)
	faint := newColor(noColor, color.FgHiBlack)

	var sb strings.Builder

	sb.WriteString(heading.Sprint(r.Source) + "\n")
	sb.WriteString(faint.Sprintf("python %s catalog, %s extraction, %d imports", r.Python, r.Mode, len(r.Imports)) + "\n\n")

	if len(r.External) == 0 {
		sb.WriteString(good.Sprint(msgNoneDetected) + "\n")

		return writeString(w, sb.String())
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"#", "External library"})

	for idx, name := range r.External {
		tbl.AppendRow(table.Row{strconv.Itoa(idx + 1), name})
	}

	tbl.AppendFooter(table.Row{"", fmt.Sprintf("Total: %d", len(r.External))})

	sb.WriteString(tbl.Render() + "\n\n")
	sb.WriteString(heading.Sprint(headingInstallCmd) + "\n")

	if r.HasCommand() {
		sb.WriteString(warn.Sprint(r.Command) + "\n")
	} else {
		sb.WriteString(good.Sprint(msgNothingToAdd) + "\n")
	}

	return writeString(w, sb.String())
}

// WriteJSON renders the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}

	return writeString(w, string(data)+"\n")
}

// WriteYAML renders the report as YAML.
func WriteYAML(w io.Writer, r Report) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write yaml report: %w", err)
	}

	return nil
}

func newColor(noColor bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if noColor {
		c.DisableColor()
	}

	return c
}

func writeString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}
