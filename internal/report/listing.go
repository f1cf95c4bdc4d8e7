package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/nao1215/patentcrawl/internal/model"
)

// Entry is one patent of a Listing.
type Entry struct {
	*model.Patent

	// Citations holds the ids of the cited patents. It is nil when citations
	// were not resolved for this listing.
	Citations []string `json:"citations,omitempty"`
}

// Listing is the data rendered by every Writer.
type Listing struct {
	// Title names what was listed: an assignee key or "citations of <id>".
	Title string `json:"title"`

	// Source is the base URL of the listing service.
	Source string `json:"source"`

	// GeneratedAt is when the listing was produced.
	GeneratedAt time.Time `json:"generated_at"`

	// WithCitations is true when every entry had its citations resolved.
	WithCitations bool `json:"with_citations"`

	// Entries are the listed patents in crawl order.
	Entries []Entry `json:"patents"`
}

// NewListing creates an empty Listing.
func NewListing(title, source string, withCitations bool) *Listing {
	return &Listing{
		Title:         title,
		Source:        source,
		GeneratedAt:   time.Now(),
		WithCitations: withCitations,
		Entries:       make([]Entry, 0),
	}
}

// Add appends p. citations is ignored unless the listing carries
// citations.
func (l *Listing) Add(p *model.Patent, citations []*model.Patent) {
	e := Entry{Patent: p}
	if l.WithCitations {
		e.Citations = make([]string, 0, len(citations))
		for _, c := range citations {
			e.Citations = append(e.Citations, c.ID)
		}
	}
	l.Entries = append(l.Entries, e)
}

// Len returns the number of entries.
func (l *Listing) Len() int {
	return len(l.Entries)
}

// YearCount is the number of listed patents filed in Year.
type YearCount struct {
	Year  int
	Count int
}

// FiledByYear counts the entries per filing year, oldest year first.
func (l *Listing) FiledByYear() []YearCount {
	counts := make(map[int]int)
	for _, e := range l.Entries {
		counts[e.Filed.Year()]++
	}

	out := make([]YearCount, 0, len(counts))
	for year, n := range counts {
		out = append(out, YearCount{Year: year, Count: n})
	}
	slices.SortFunc(out, func(a, b YearCount) int {
		return cmp.Compare(a.Year, b.Year)
	})
	return out
}

// CitedTimes counts how many listed patents cite each patent id. Entries
// without resolved citations contribute nothing.
func (l *Listing) CitedTimes() map[string]int {
	counts := make(map[string]int)
	for _, e := range l.Entries {
		for _, id := range e.Citations {
			counts[id]++
		}
	}
	return counts
}

// FirstCiteRate returns the share of cited patents that are cited by
// exactly one listed patent, or 0 when nothing is cited.
func (l *Listing) FirstCiteRate() float64 {
	counts := l.CitedTimes()
	if len(counts) == 0 {
		return 0
	}

	var once int
	for _, n := range counts {
		if n == 1 {
			once++
		}
	}
	return float64(once) / float64(len(counts))
}
