package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs listings in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the listing in Markdown format.
func (w *MarkdownWriter) Write(listing *Listing) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, listing)
	w.writePatents(md, listing)
	w.writeAbstracts(md, listing)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, listing *Listing) {
	md.H1("Patents: " + listing.Title)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", listing.Source},
			{"Generated", listing.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Patents", strconv.Itoa(listing.Len())},
		},
	})
	md.PlainText("")

	if listing.Len() > 1 {
		w.writePieChart(md, listing)
	}
}

// writePieChart writes a mermaid pie chart of patents per filing year.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, listing *Listing) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Patents by Filing Year"),
		piechart.WithShowData(true),
	)
	for _, yc := range listing.FiledByYear() {
		chart.LabelAndIntValue(strconv.Itoa(yc.Year), uint64(yc.Count)) //nolint:gosec // counts are positive
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writePatents(md *markdown.Markdown, listing *Listing) {
	md.H2("Patents")
	md.PlainText("")

	if listing.Len() == 0 {
		md.Note("No patents found.")
		md.PlainText("")
		return
	}

	header := []string{"ID", "Title", "Filed", "Issued", "Assignee"}
	if listing.WithCitations {
		header = append(header, "Citations")
	}

	rows := make([][]string, len(listing.Entries))
	for i, e := range listing.Entries {
		row := []string{
			fmt.Sprintf("[%s](%s)", e.ID, e.URL),
			escapeCell(e.Title),
			e.Filed.Format(dateLayout),
			e.Issued.Format(dateLayout),
			escapeCell(e.AssigneeOr("-")),
		}
		if listing.WithCitations {
			row = append(row, citationCell(e.Citations))
		}
		rows[i] = row
	}

	md.Table(markdown.TableSet{
		Header: header,
		Rows:   rows,
	})
	md.PlainText("")
}

// writeAbstracts writes a collapsible abstract per patent that has one.
func (w *MarkdownWriter) writeAbstracts(md *markdown.Markdown, listing *Listing) {
	var wrote bool
	for _, e := range listing.Entries {
		abstract := e.AbstractOr("")
		if abstract == "" {
			continue
		}
		if !wrote {
			md.H2("Abstracts")
			md.PlainText("")
			wrote = true
		}
		md.Details(e.ID+": "+e.Title, abstract)
	}
	if wrote {
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [patentcrawl](https://github.com/nao1215/patentcrawl)*")
}

func citationCell(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}

// escapeCell keeps pipes in titles from breaking the table.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
