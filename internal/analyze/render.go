package analyze

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var rule = strings.Repeat("=", 80)

var markers = map[Kind]string{
	KindOK:      "✓",
	KindWarning: "⚠",
	KindInfo:    "•",
}

// Write renders r to w in the given format.
func Write(w io.Writer, r *Report, format string) error {
	switch format {
	case FormatText, "":
		return writeText(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(r), "analyze: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "analyze: encode yaml")
		}
		return eris.Wrap(enc.Close(), "analyze: close yaml encoder")
	default:
		return eris.Errorf("analyze: unknown format %q", format)
	}
}

func writeText(w io.Writer, r *Report) error {
	p := message.NewPrinter(language.English)

	var b strings.Builder
	p.Fprintf(&b, "Total messages: %d\n\n", r.Total)
	b.WriteString(rule + "\nDATA ANALYSIS REPORT\n" + rule + "\n\n")

	b.WriteString("FINDINGS:\n\n")
	for _, f := range r.Findings {
		b.WriteString("  " + markers[f.Kind] + " " + f.Text + "\n")
	}

	b.WriteString("\n" + rule + "\nSUMMARY\n" + rule + "\n")
	if n := r.Anomalies(); n == 0 {
		b.WriteString(markers[KindOK] + " No major anomalies detected. Data quality appears good.\n")
	} else {
		p.Fprintf(&b, "%s Found %d potential anomaly categories.\n", markers[KindWarning], n)
		b.WriteString("   Review the findings above for details.\n")
	}

	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "analyze: write report")
}
