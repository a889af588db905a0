package arxiv

import (
	"encoding/xml"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/convergence/core"
)

// feed mirrors the parts of the arXiv Atom response we read.
type feed struct {
	XMLName xml.Name `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []entry  `xml:"http://www.w3.org/2005/Atom entry"`
}

type entry struct {
	ID         string     `xml:"http://www.w3.org/2005/Atom id"`
	Title      string     `xml:"http://www.w3.org/2005/Atom title"`
	Summary    string     `xml:"http://www.w3.org/2005/Atom summary"`
	Published  string     `xml:"http://www.w3.org/2005/Atom published"`
	Authors    []author   `xml:"http://www.w3.org/2005/Atom author"`
	Categories []category `xml:"http://www.w3.org/2005/Atom category"`
	Primary    category   `xml:"http://arxiv.org/schemas/atom primary_category"`
	Links      []link     `xml:"http://www.w3.org/2005/Atom link"`
}

type author struct {
	Name string `xml:"http://www.w3.org/2005/Atom name"`
}

type category struct {
	Term string `xml:"term,attr"`
}

type link struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
}

// parseFeed decodes an Atom document into documents. An entry without an
// id is keyed by a hash of its title and abstract; one with neither is
// dropped.
func parseFeed(data []byte) ([]core.CandidateDocument, error) {
	var f feed
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	docs := make([]core.CandidateDocument, 0, len(f.Entries))
	for _, e := range f.Entries {
		doc, ok := e.document()
		if !ok {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (e entry) document() (core.CandidateDocument, bool) {
	title := collapse(e.Title)
	abstract := collapse(e.Summary)

	rawID := strings.TrimSpace(e.ID)
	id := rawID
	switch {
	case rawID != "":
		if i := strings.LastIndex(rawID, "/abs/"); i >= 0 {
			id = rawID[i+len("/abs/"):]
		}
	case title != "" || abstract != "":
		id = "content-" + core.IDFromContent(title+"\n"+abstract).String()
	default:
		return core.CandidateDocument{}, false
	}

	if title == "" {
		title = "Untitled"
	}

	doc := core.CandidateDocument{
		ID:       id,
		Title:    title,
		Abstract: abstract,
	}

	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			doc.Authors = append(doc.Authors, name)
		}
	}

	for _, c := range e.Categories {
		if c.Term != "" {
			doc.SourceCategories = append(doc.SourceCategories, c.Term)
		}
	}
	if p := e.Primary.Term; p != "" && !slices.Contains(doc.SourceCategories, p) {
		doc.SourceCategories = append([]string{p}, doc.SourceCategories...)
	}

	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		doc.PublishedAt = t.UTC()
	}

	for _, l := range e.Links {
		if l.Title == "pdf" && l.Href != "" {
			doc.URL = l.Href
			break
		}
	}
	if doc.URL == "" && rawID != "" {
		doc.URL = "https://arxiv.org/pdf/" + id + ".pdf"
	}

	return doc, true
}

// collapse trims and folds runs of whitespace to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
