package crawler

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/patentcrawl/internal/model"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestParserParseListing(t *testing.T) {
	t.Parallel()

	parser := NewParser("https://patents.example.com/", nil)

	t.Run("extracts summary fields", func(t *testing.T) {
		t.Parallel()

		content := listingHTML([]record{{
			id:       "12039383",
			title:    "Systems and methods for rendering",
			abstract: "A method of rendering things.",
			filed:    "October 29, 2021",
			issued:   "Jul 16, 2024",
			assignee: "Meta Platforms, Inc.",
		}}, false)

		page, err := parser.ParseListing([]byte(content))
		if err != nil {
			t.Fatalf("ParseListing() error: %v", err)
		}
		if len(page.Records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(page.Records))
		}
		if page.HasNext {
			t.Error("HasNext = true, expected false")
		}

		p := page.Records[0]
		if p.ID != "12039383" {
			t.Errorf("ID = %q", p.ID)
		}
		if p.Title != "Systems and methods for rendering" {
			t.Errorf("Title = %q", p.Title)
		}
		if p.URL != "https://patents.example.com/patent/12039383" {
			t.Errorf("URL = %q", p.URL)
		}
		if got := p.AbstractOr(""); got != "A method of rendering things." {
			t.Errorf("Abstract = %q", got)
		}
		if got := p.AssigneeOr(""); got != "Meta Platforms, Inc." {
			t.Errorf("Assignee = %q", got)
		}
		if !p.Filed.Equal(date(2021, time.October, 29)) {
			t.Errorf("Filed = %v", p.Filed)
		}
		if !p.Issued.Equal(date(2024, time.July, 16)) {
			t.Errorf("Issued = %v", p.Issued)
		}
		if p.HasDetail() {
			t.Error("summary record should not carry detail content")
		}
	})

	t.Run("records keep document order", func(t *testing.T) {
		t.Parallel()

		content := listingHTML([]record{
			{id: "3", title: "c", filed: "May 1, 2020"},
			{id: "1", title: "a", filed: "May 1, 2020"},
			{id: "2", title: "b", filed: "May 1, 2020"},
		}, true)

		page, err := parser.ParseListing([]byte(content))
		if err != nil {
			t.Fatalf("ParseListing() error: %v", err)
		}
		var ids []string
		for _, p := range page.Records {
			ids = append(ids, p.ID)
		}
		if !slices.Equal(ids, []string{"3", "1", "2"}) {
			t.Errorf("ids = %v, expected [3 1 2]", ids)
		}
		if !page.HasNext {
			t.Error("HasNext = false, expected true")
		}
	})

	t.Run("optional fields absent", func(t *testing.T) {
		t.Parallel()

		content := listingHTML([]record{{id: "7", title: "Bare", filed: "Feb 2, 2019"}}, false)

		page, err := parser.ParseListing([]byte(content))
		if err != nil {
			t.Fatalf("ParseListing() error: %v", err)
		}
		p := page.Records[0]
		if p.Abstract != nil {
			t.Errorf("Abstract = %q, expected nil", *p.Abstract)
		}
		if p.Assignee != nil {
			t.Errorf("Assignee = %q, expected nil", *p.Assignee)
		}
		if !p.Issued.Equal(model.SentinelDate) {
			t.Errorf("Issued = %v, expected sentinel", p.Issued)
		}
		if !p.Filed.Equal(date(2019, time.February, 2)) {
			t.Errorf("Filed = %v", p.Filed)
		}
	})

	t.Run("no-break spaces in dates", func(t *testing.T) {
		t.Parallel()

		content := listingHTML([]record{{id: "8", title: "x", filed: "March&nbsp;3,&nbsp;2018"}}, false)

		page, err := parser.ParseListing([]byte(content))
		if err != nil {
			t.Fatalf("ParseListing() error: %v", err)
		}
		if !page.Records[0].Filed.Equal(date(2018, time.March, 3)) {
			t.Errorf("Filed = %v", page.Records[0].Filed)
		}
	})

	t.Run("missing filing date is fatal", func(t *testing.T) {
		t.Parallel()

		content := listingHTML([]record{{id: "9", title: "x"}}, false)

		_, err := parser.ParseListing([]byte(content))
		var missing *MissingFieldError
		if !errors.As(err, &missing) {
			t.Fatalf("expected *MissingFieldError, got %v", err)
		}
		if missing.ID != "9" || missing.Field != "date-filed" {
			t.Errorf("MissingFieldError = %+v", missing)
		}
	})

	t.Run("unparseable date is fatal", func(t *testing.T) {
		t.Parallel()

		content := listingHTML([]record{{id: "10", title: "x", filed: "2021-10-29"}}, false)

		_, err := parser.ParseListing([]byte(content))
		var dateErr *model.DateError
		if !errors.As(err, &dateErr) {
			t.Fatalf("expected *model.DateError, got %v", err)
		}
		if dateErr.Input != "2021-10-29" {
			t.Errorf("Input = %q", dateErr.Input)
		}
	})

	t.Run("missing link is fatal", func(t *testing.T) {
		t.Parallel()

		content := `<ul><li class="has-padding-content-block-30 -zb"><div class="head">No link</div></li></ul>`

		_, err := parser.ParseListing([]byte(content))
		var missing *MissingFieldError
		if !errors.As(err, &missing) {
			t.Fatalf("expected *MissingFieldError, got %v", err)
		}
	})

	t.Run("empty page", func(t *testing.T) {
		t.Parallel()

		page, err := parser.ParseListing([]byte(`<html><body><p>No patents found.</p></body></html>`))
		if err != nil {
			t.Fatalf("ParseListing() error: %v", err)
		}
		if len(page.Records) != 0 || page.HasNext {
			t.Errorf("page = %+v, expected empty without next", page)
		}
	})

	t.Run("other list items are ignored", func(t *testing.T) {
		t.Parallel()

		content := `<ul>
			<li class="has-padding-content-block-30">sidebar</li>
			<li class="has-padding-content-block-30 -zb"><div class="head"><a href="/patent/1">t</a></div>
			<div class="meta"><div class="date-filed">May 1, 2020</div></div></li>
		</ul>`

		page, err := parser.ParseListing([]byte(content))
		if err != nil {
			t.Fatalf("ParseListing() error: %v", err)
		}
		if len(page.Records) != 1 {
			t.Errorf("expected 1 record, got %d", len(page.Records))
		}
	})
}

func TestParserParseDetail(t *testing.T) {
	t.Parallel()

	parser := NewParser("https://patents.example.com", nil)

	t.Run("extracts fields and keeps content", func(t *testing.T) {
		t.Parallel()

		content := []byte(detailHTML(detail{
			title:     "Neural widget",
			abstract:  "A widget that is neural.",
			filed:     "January 5, 2020",
			issued:    "Mar 1, 2022",
			assignee:  "Acme Corp",
			citations: []string{"1", "2"},
		}))

		p, err := parser.ParseDetail("555", content)
		if err != nil {
			t.Fatalf("ParseDetail() error: %v", err)
		}
		if p.ID != "555" || p.Title != "Neural widget" {
			t.Errorf("ID, Title = %q, %q", p.ID, p.Title)
		}
		if p.URL != "https://patents.example.com/patent/555" {
			t.Errorf("URL = %q", p.URL)
		}
		if p.AbstractOr("") != "A widget that is neural." {
			t.Errorf("Abstract = %q", p.AbstractOr(""))
		}
		if p.AssigneeOr("") != "Acme Corp" {
			t.Errorf("Assignee = %q", p.AssigneeOr(""))
		}
		if !p.Filed.Equal(date(2020, time.January, 5)) {
			t.Errorf("Filed = %v", p.Filed)
		}
		if !p.Issued.Equal(date(2022, time.March, 1)) {
			t.Errorf("Issued = %v", p.Issued)
		}
		if !p.HasDetail() {
			t.Error("expected detail content to be populated")
		}
	})

	t.Run("publication date used without date of patent", func(t *testing.T) {
		t.Parallel()

		content := []byte(detailHTML(detail{title: "x", filed: "June 1, 2021", published: "December 8, 2022"}))

		p, err := parser.ParseDetail("1", content)
		if err != nil {
			t.Fatalf("ParseDetail() error: %v", err)
		}
		if !p.Issued.Equal(date(2022, time.December, 8)) {
			t.Errorf("Issued = %v", p.Issued)
		}
	})

	t.Run("date of patent wins over publication date", func(t *testing.T) {
		t.Parallel()

		content := []byte(detailHTML(detail{title: "x", issued: "June 1, 2023", published: "December 8, 2022"}))

		p, err := parser.ParseDetail("1", content)
		if err != nil {
			t.Fatalf("ParseDetail() error: %v", err)
		}
		if !p.Issued.Equal(date(2023, time.June, 1)) {
			t.Errorf("Issued = %v", p.Issued)
		}
	})

	t.Run("missing dates fall back to sentinel", func(t *testing.T) {
		t.Parallel()

		p, err := parser.ParseDetail("1", []byte(detailHTML(detail{title: "Old one"})))
		if err != nil {
			t.Fatalf("ParseDetail() error: %v", err)
		}
		if !p.Filed.Equal(model.SentinelDate) {
			t.Errorf("Filed = %v, expected sentinel", p.Filed)
		}
		if !p.Issued.Equal(model.SentinelDate) {
			t.Errorf("Issued = %v, expected sentinel", p.Issued)
		}
		if p.Abstract != nil || p.Assignee != nil {
			t.Error("expected absent abstract and assignee")
		}
	})

	t.Run("bad date is fatal", func(t *testing.T) {
		t.Parallel()

		_, err := parser.ParseDetail("1", []byte(detailHTML(detail{filed: "someday"})))
		var dateErr *model.DateError
		if !errors.As(err, &dateErr) {
			t.Fatalf("expected *model.DateError, got %v", err)
		}
	})

	t.Run("empty id", func(t *testing.T) {
		t.Parallel()

		if _, err := parser.ParseDetail("", []byte("<html></html>")); !errors.Is(err, ErrEmptyID) {
			t.Errorf("expected ErrEmptyID, got %v", err)
		}
	})
}

func TestParserCitedIDs(t *testing.T) {
	t.Parallel()

	parser := NewParser("https://patents.example.com", nil)

	t.Run("document order without duplicates", func(t *testing.T) {
		t.Parallel()

		content := []byte(detailHTML(detail{citations: []string{"30", "10", "30", "20", "10"}}))

		ids, err := parser.CitedIDs(content)
		if err != nil {
			t.Fatalf("CitedIDs() error: %v", err)
		}
		if !slices.Equal(ids, []string{"30", "10", "20"}) {
			t.Errorf("ids = %v, expected [30 10 20]", ids)
		}
	})

	t.Run("only links inside the citations section", func(t *testing.T) {
		t.Parallel()

		content := []byte(`<html><body>
			<a href="/patent/999">Related</a>
			<section id="citations">
				<a href="https://patents.example.com/patent/1">absolute</a>
				<a href="/patent/2/">trailing slash</a>
				<a href="/assignee/acme">not a patent</a>
				<a href="/patent/">no id</a>
				<a>no href</a>
			</section>
		</body></html>`)

		ids, err := parser.CitedIDs(content)
		if err != nil {
			t.Fatalf("CitedIDs() error: %v", err)
		}
		if !slices.Equal(ids, []string{"1", "2"}) {
			t.Errorf("ids = %v, expected [1 2]", ids)
		}
	})

	t.Run("no citations section", func(t *testing.T) {
		t.Parallel()

		ids, err := parser.CitedIDs([]byte(detailHTML(detail{title: "x", noCitations: true})))
		if err != nil {
			t.Fatalf("CitedIDs() error: %v", err)
		}
		if ids == nil || len(ids) != 0 {
			t.Errorf("ids = %#v, expected empty non-nil slice", ids)
		}
	})
}

func TestPatentIDFromHref(t *testing.T) {
	t.Parallel()

	tests := []struct {
		href   string
		wantID string
		wantOK bool
	}{
		{"/patent/12039383", "12039383", true},
		{" /patent/12039383 ", "12039383", true},
		{"https://patents.justia.com/patent/20240112233", "20240112233", true},
		{"/patent/RE49876/", "RE49876", true},
		{"/patent/1?ref=x", "1", true},
		{"/patent/", "", false},
		{"/patent/1/claims", "", false},
		{"/assignee/acme", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			t.Parallel()

			id, ok := patentIDFromHref(tt.href)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("patentIDFromHref(%q) = %q, %v, expected %q, %v", tt.href, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}
