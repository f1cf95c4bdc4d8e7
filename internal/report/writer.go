package report

import "io"

// Writer renders a Listing to its destination.
type Writer interface {
	// Write outputs the listing and returns the number of bytes written.
	Write(listing *Listing) (int, error)
}

// MultiWriter writes a listing to several Writers in turn, for example the
// terminal and a report file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the listing to every Writer and stops at the first error.
func (m *MultiWriter) Write(listing *Listing) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(listing)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

const dateLayout = "2006-01-02"
