package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/patentcrawl/internal/model"
)

// Class attribute values of the listing markup.
const (
	classRecord     = "has-padding-content-block-30 -zb"
	classHead       = "head"
	classMeta       = "meta"
	classAbstract   = "abstract"
	classDateFiled  = "date-filed"
	classDateIssued = "date-issued"
	classAssignees  = "assignees"
	classPagination = "pagination page"
	classHeading    = "heading-1"
)

// Labels of the detail page history table.
const (
	labelFiled           = "Filed"
	labelDateOfPatent    = "Date of Patent"
	labelPublicationDate = "Publication Date"
	labelAssignee        = "Assignee"
)

// patentPathPrefix is the path prefix of detail page links.
const patentPathPrefix = "/patent/"

// Parser turns listing and detail markup into patents.
// It holds no per-page state and is safe for concurrent use.
type Parser struct {
	// baseURL is prepended to detail paths to form Patent.URL.
	baseURL string

	// source is attached to every parsed patent for its further fetches.
	source model.Source
}

// ListingPage is the parsed content of one listing page.
type ListingPage struct {
	// Records are the summary records in document order.
	Records []*model.Patent

	// HasNext reports whether the page has a "next" control.
	HasNext bool
}

// NewParser creates a Parser. Parsed patents get source as their Source and
// URLs rooted at baseURL.
func NewParser(baseURL string, source model.Source) *Parser {
	return &Parser{
		baseURL: strings.TrimRight(baseURL, "/"),
		source:  source,
	}
}

// ParseListing parses one listing page.
//
// A record missing its link or filing date fails the whole page with a
// *MissingFieldError; an unparseable date fails it with a *model.DateError.
func (p *Parser) ParseListing(content []byte) (*ListingPage, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing markup: %w", err)
	}

	page := &ListingPage{
		Records: make([]*model.Patent, 0),
	}

	var walkErr error
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if walkErr != nil {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "li" && hasClass(n, classRecord):
				record, err := p.parseSummary(n)
				if err != nil {
					walkErr = err
					return
				}
				page.Records = append(page.Records, record)
				return
			case n.Data == "span" && hasClass(n, classPagination) && hasNextLink(n):
				page.HasNext = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if walkErr != nil {
		return nil, walkErr
	}
	return page, nil
}

// parseSummary builds a patent from one listing record node.
func (p *Parser) parseSummary(n *html.Node) (*model.Patent, error) {
	var anchor *html.Node
	if head := findElement(n, "div", classHead); head != nil {
		anchor = findElement(head, "a", "")
	}
	if anchor == nil {
		return nil, &MissingFieldError{Field: "link"}
	}

	id, ok := patentIDFromHref(getAttr(anchor, "href"))
	if !ok {
		return nil, &MissingFieldError{Field: "id"}
	}

	fields := model.Fields{
		ID:     id,
		Title:  firstText(anchor),
		Issued: model.SentinelDate,
		URL:    p.detailURL(id),
	}

	meta := findElement(n, "div", classMeta)
	if meta == nil {
		return nil, &MissingFieldError{ID: id, Field: classDateFiled}
	}

	if s, ok := metaValue(meta, classAbstract); ok {
		fields.Abstract = &s
	}
	if s, ok := metaValue(meta, classAssignees); ok {
		fields.Assignee = &s
	}

	filed, ok := metaValue(meta, classDateFiled)
	if !ok {
		return nil, &MissingFieldError{ID: id, Field: classDateFiled}
	}
	date, err := model.ParseDate(filed)
	if err != nil {
		return nil, fmt.Errorf("patent %s filing date: %w", id, err)
	}
	fields.Filed = date

	if issued, ok := metaValue(meta, classDateIssued); ok {
		date, err := model.ParseDate(issued)
		if err != nil {
			return nil, fmt.Errorf("patent %s issue date: %w", id, err)
		}
		fields.Issued = date
	}

	return model.NewPatent(fields, p.source, nil), nil
}

// ParseDetail builds a patent from its detail page. The returned patent
// carries content as its detail content.
//
// A missing filing date, or a page with neither an issue nor a publication
// date, falls back to model.SentinelDate.
func (p *Parser) ParseDetail(id string, content []byte) (*model.Patent, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail markup of %s: %w", id, err)
	}

	fields := model.Fields{
		ID:     id,
		Filed:  model.SentinelDate,
		Issued: model.SentinelDate,
		URL:    p.detailURL(id),
	}

	if h := findElement(doc, "h1", classHeading); h != nil {
		fields.Title = allText(h)
	}
	if div := findElementByID(doc, "abstract"); div != nil {
		if s := allText(div); s != "" {
			fields.Abstract = &s
		}
	}

	rows := historyRows(doc)
	if s, ok := rows[labelAssignee]; ok && s != "" {
		fields.Assignee = &s
	}
	if s, ok := rows[labelFiled]; ok {
		date, err := model.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("patent %s filing date: %w", id, err)
		}
		fields.Filed = date
	}

	issued, ok := rows[labelDateOfPatent]
	if !ok {
		issued, ok = rows[labelPublicationDate]
	}
	if ok {
		date, err := model.ParseDate(issued)
		if err != nil {
			return nil, fmt.Errorf("patent %s issue date: %w", id, err)
		}
		fields.Issued = date
	}

	return model.NewPatent(fields, p.source, content), nil
}

// CitedIDs returns the ids of the patents cited by a detail page, in document
// order and without duplicates. A page without a citations section yields an
// empty slice.
func (p *Parser) CitedIDs(content []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail markup: %w", err)
	}

	ids := make([]string, 0)
	container := findElementByID(doc, "citations")
	if container == nil {
		return ids, nil
	}

	seen := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if id, ok := patentIDFromHref(getAttr(n, "href")); ok && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(container)

	return ids, nil
}

// detailURL returns the canonical detail page URL of id.
func (p *Parser) detailURL(id string) string {
	return p.baseURL + patentPathPrefix + url.PathEscape(id)
}

// hasNextLink reports whether a pagination span holds an anchor reading "next".
func hasNextLink(span *html.Node) bool {
	for c := span.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "a" && strings.EqualFold(allText(c), "next") {
			return true
		}
	}
	return false
}

// metaValue returns the last non-blank text node directly under the child div
// of meta with the given class. Labels live in nested elements and are skipped.
func metaValue(meta *html.Node, class string) (string, bool) {
	for c := meta.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "div" || !hasClass(c, class) {
			continue
		}
		value := ""
		for t := c.FirstChild; t != nil; t = t.NextSibling {
			if t.Type == html.TextNode {
				if s := cleanText(t.Data); s != "" {
					value = s
				}
			}
		}
		return value, value != ""
	}
	return "", false
}

// historyRows collects "Label:" / value pairs from two-cell table rows.
// The first occurrence of a label wins.
func historyRows(doc *html.Node) map[string]string {
	rows := make(map[string]string)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []*html.Node
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, c)
				}
			}
			if len(cells) >= 2 {
				label := strings.TrimSuffix(allText(cells[0]), ":")
				label = strings.TrimSpace(label)
				if _, ok := rows[label]; !ok && label != "" {
					rows[label] = allText(cells[1])
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return rows
}

// patentIDFromHref extracts the id from a "/patent/<id>" link, relative or
// absolute.
func patentIDFromHref(href string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	rest, ok := strings.CutPrefix(u.Path, patentPathPrefix)
	if !ok {
		return "", false
	}
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// findElement returns the first descendant element of n (n included) with the
// given tag and, when class is non-empty, the given class attribute.
func findElement(n *html.Node, tag, class string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag && (class == "" || hasClass(n, class)) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

// findElementByID returns the first element with the given id attribute.
func findElementByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && getAttr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElementByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// hasClass reports whether the class attribute of n equals class, ignoring
// differences in whitespace.
func hasClass(n *html.Node, class string) bool {
	return strings.Join(strings.Fields(getAttr(n, "class")), " ") == class
}

// firstText returns the first non-blank text node directly under n.
func firstText(n *html.Node) string {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			if s := cleanText(c.Data); s != "" {
				return s
			}
		}
	}
	return ""
}

// allText returns the concatenated text of n and its descendants.
func allText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return cleanText(sb.String())
}

// cleanText normalizes s to NFKC (turning no-break spaces into spaces) and
// collapses whitespace runs.
func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
