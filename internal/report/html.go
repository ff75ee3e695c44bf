package report

import (
	"bytes"
	"io"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/nao1215/lpmerge/internal/model"
)

// htmlStyle colors table rows by severity, mirroring the terminal styles.
const htmlStyle = `body { font-family: sans-serif; }
table { border-collapse: collapse; }
th, td { padding: 2px 8px; text-align: right; }
td.code { text-align: left; white-space: pre; font-family: monospace; }
tr.sev-critical { background: #c62828; color: #fff; font-weight: bold; }
tr.sev-very-heavy { color: #c62828; font-weight: bold; }
tr.sev-heavy { color: #b8860b; font-weight: bold; }
tr.sev-light-heavy { color: #b8860b; }
tr.sev-normal { color: #2e7d32; }
tr.sev-light { color: #00838f; }
`

// HTMLWriter outputs reports as a standalone HTML document.
type HTMLWriter struct {
	baseWriter
}

// NewHTMLWriter creates an HTMLWriter that outputs to the given writer.
func NewHTMLWriter(output io.Writer) *HTMLWriter {
	return &HTMLWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report as an HTML document.
func (w *HTMLWriter) Write(report *model.Report) (int, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, buildDocument(report)); err != nil {
		return 0, err
	}
	buf.WriteByte('\n')
	return w.output.Write(buf.Bytes())
}

// buildDocument builds the node tree of the report page.
func buildDocument(report *model.Report) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	doc.AppendChild(root)

	title := "Line Profile: " + report.FunctionName
	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	head.AppendChild(withText(element(atom.Title), title))
	head.AppendChild(withText(element(atom.Style), htmlStyle))
	root.AppendChild(head)

	body := element(atom.Body)
	body.AppendChild(withText(element(atom.H1), title))

	summary := element(atom.Dl)
	for _, item := range [][2]string{
		{"File", report.SourceFile},
		{"Defined at", "line " + strconv.Itoa(report.DefLine)},
		{"Timer unit", formatFloat(report.TimerUnit) + " s"},
		{"Total time", formatFloat(report.TotalTime) + " s"},
		{"Merged reports", strconv.Itoa(len(report.Sources))},
	} {
		summary.AppendChild(withText(element(atom.Dt), item[0]))
		summary.AppendChild(withText(element(atom.Dd), item[1]))
	}
	body.AppendChild(summary)
	body.AppendChild(buildTable(report))
	root.AppendChild(body)

	return doc
}

// buildTable builds the line table. Executed lines carry a sev-<severity> class.
func buildTable(report *model.Report) *html.Node {
	table := element(atom.Table)

	header := element(atom.Tr)
	for _, label := range []string{"Line #", "Hits", "Time", "Per Hit", "% Time", "Line Contents"} {
		header.AppendChild(withText(element(atom.Th), label))
	}
	table.AppendChild(header)

	for _, l := range report.Lines {
		cells := []string{strconv.Itoa(l.Number), "", "", "", ""}
		row := element(atom.Tr)
		if l.HasHits() {
			perHit, _ := report.PerHit(l)
			ratio, _ := report.RatioPercent(l)
			perHit, ratio = roundTenth(perHit), roundTenth(ratio)
			cells[1] = strconv.FormatInt(l.Stats.Hits, 10)
			cells[2] = formatFloat(l.Stats.Elapsed)
			cells[3] = strconv.FormatFloat(perHit, 'f', 1, 64)
			cells[4] = strconv.FormatFloat(ratio, 'f', 1, 64)
			row.Attr = append(row.Attr, html.Attribute{Key: "class", Val: "sev-" + model.SeverityFor(ratio).String()})
		}
		for _, c := range cells {
			row.AppendChild(withText(element(atom.Td), c))
		}
		row.AppendChild(withText(element(atom.Td, html.Attribute{Key: "class", Val: "code"}), l.Code))
		table.AppendChild(row)
	}
	return table
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a, Attr: attrs}
}

func withText(n *html.Node, text string) *html.Node {
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return n
}
