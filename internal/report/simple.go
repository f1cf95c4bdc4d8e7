package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// SimpleWriter outputs human-readable text for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose adds the abstract and assignee of each patent.
	verbose bool

	heading *color.Color
	id      *color.Color
	faint   *color.Color
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor forces colored output on or off. By default color follows
// whether stdout is a terminal.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		for _, c := range []*color.Color{w.heading, w.id, w.faint} {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		heading:    color.New(color.FgHiCyan, color.Bold),
		id:         color.New(color.FgYellow),
		faint:      color.New(color.FgHiBlack),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the listing in human-readable format.
func (w *SimpleWriter) Write(listing *Listing) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, listing)
	w.writeEntries(&sb, listing)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, listing *Listing) {
	rule := strings.Repeat("=", 70)

	sb.WriteString(rule + "\n")
	sb.WriteString(w.heading.Sprint("PATENTS: "+listing.Title) + "\n")
	sb.WriteString(rule + "\n")
	fmt.Fprintf(sb, "Source:    %s\n", listing.Source)
	fmt.Fprintf(sb, "Generated: %s\n", listing.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Patents:   %d\n\n", listing.Len())
}

func (w *SimpleWriter) writeEntries(sb *strings.Builder, listing *Listing) {
	if listing.Len() == 0 {
		sb.WriteString("No patents found.\n")
		return
	}

	for i, e := range listing.Entries {
		fmt.Fprintf(sb, "[%d] %s  %s\n",
			i+1,
			w.id.Sprint(e.ID),
			w.faint.Sprintf("filed %s, issued %s", e.Filed.Format(dateLayout), e.Issued.Format(dateLayout)),
		)
		fmt.Fprintf(sb, "    %s\n", e.Title)
		if w.verbose {
			fmt.Fprintf(sb, "    Assignee: %s\n", e.AssigneeOr("-"))
			if abstract := e.AbstractOr(""); abstract != "" {
				fmt.Fprintf(sb, "    Abstract: %s\n", abstract)
			}
		}
		fmt.Fprintf(sb, "    %s\n", e.URL)
		if listing.WithCitations {
			cited := "none"
			if len(e.Citations) > 0 {
				cited = strings.Join(e.Citations, ", ")
			}
			fmt.Fprintf(sb, "    Citations (%d): %s\n", len(e.Citations), cited)
		}
		sb.WriteString("\n")
	}
}
