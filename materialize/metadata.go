package materialize

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/carbocation/ensemblefit/compileinfo"
	"github.com/carbocation/pfx"
)

// MetadataFileName is the base name of the job metadata document.
const MetadataFileName = "job_metadata.txt"

const ruleWidth = 50

// Metadata describes a job for the human-readable metadata document.
type Metadata struct {
	Date               time.Time
	Samples            int
	GenomeBuild        string
	SignatureReference string
	Strategy           string

	// Tools are the descriptions of the tools that ran, in run order, such as
	// "Sigminer (2.1.7)".
	Tools []string

	Build compileinfo.CompileInfo
}

// center pads s with fill on both sides to width, with the extra rune on the
// right when the padding is odd.
func center(s string, width int, fill rune) string {
	pad := width - len(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2

	return strings.Repeat(string(fill), left) + s + strings.Repeat(string(fill), pad-left)
}

// wrap breaks text into lines of at most width columns at spaces. Words
// longer than width get a line of their own.
func wrap(text string, width int) string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}

	return strings.Join(lines, "\n")
}

// joinSeries joins items as "a, b, and c".
func joinSeries(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}

	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}

// String renders the metadata document.
func (m Metadata) String() string {
	var b strings.Builder

	b.WriteString(center("INPUT INFO", ruleWidth, '=') + "\n")
	fmt.Fprintf(&b, "Job Date: %s UTC\n", m.Date.UTC().Format("2006 Jan 02 15:04:05"))
	fmt.Fprintf(&b, "Number of samples: %d\n", m.Samples)
	fmt.Fprintf(&b, "Reference genome: %s\n", m.GenomeBuild)
	fmt.Fprintf(&b, "Signature database: %s\n", m.SignatureReference)

	b.WriteString(center("WORKFLOW INFO", ruleWidth, '=') + "\n")
	fmt.Fprintf(&b, "Tools:\n - %s\n\n", strings.Join(m.Tools, "\n - "))
	fmt.Fprintf(&b, "Strategy: %s\n", m.Strategy)

	if m.Build.GoVersion != "" {
		b.WriteString(center("BUILD INFO", ruleWidth, '=') + "\n")
		b.WriteString(wrap(m.Build.String(), 80) + "\n")
	}
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n\n")

	b.WriteString("If you use EnsembleFit results in your research, please include the information:\n\n")
	sentence := fmt.Sprintf("EnsembleFit was ran using the %q strategy on %s signature assignment tools.", m.Strategy, joinSeries(m.Tools))
	b.WriteString(wrap(sentence, 80))

	return b.String()
}

// WriteMetadata writes the metadata document.
func WriteMetadata(path string, m Metadata) error {
	return pfx.Err(os.WriteFile(path, []byte(m.String()), 0o644))
}
