// Package page models the host HTML page the site renders into. Elements are
// addressed by fixed IDs; the page never creates them.
package page

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element IDs the host page provides.
const (
	TotalCitationsID = "statTotalCites"
	PaperCountID     = "statPaperCount"
	UpdatedAtID      = "statUpdatedAt"
	SortSelectID     = "sortSelect"
	TableContainerID = "pubsTableWrap"
	CitationsChartID = "chartCitationsByYear"
	TopPapersChartID = "chartTopPapers"
	IntroID          = "siteIntro"
)

// RequiredIDs lists the elements every host page must carry.
var RequiredIDs = []string{
	TotalCitationsID,
	PaperCountID,
	UpdatedAtID,
	SortSelectID,
	TableContainerID,
	CitationsChartID,
	TopPapersChartID,
}

// MissingElementError reports host page elements that could not be found.
type MissingElementError struct {
	IDs []string
}

func (e *MissingElementError) Error() string {
	return fmt.Sprintf("host page is missing elements: %s", strings.Join(e.IDs, ", "))
}

// ChangeFunc handles a change event with the control's new value.
type ChangeFunc func(value string)

// Page is a parsed host page. It is not safe for concurrent use.
type Page struct {
	doc       *goquery.Document
	listeners map[string][]ChangeFunc
}

// Parse reads a host page.
func Parse(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing host page: %w", err)
	}
	return &Page{doc: doc, listeners: make(map[string][]ChangeFunc)}, nil
}

// Element returns the element with the given ID. The result is empty, and
// every write to it a no-op, when the page has no such element.
func (p *Page) Element(id string) *Element {
	return &Element{id: id, sel: p.doc.Find("#" + id).First()}
}

// Require checks that every id is present.
func (p *Page) Require(ids ...string) error {
	var missing []string
	for _, id := range ids {
		if !p.Element(id).Exists() {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &MissingElementError{IDs: missing}
	}
	return nil
}

// OnChange registers fn for change events on the element with the given ID.
func (p *Page) OnChange(id string, fn ChangeFunc) {
	p.listeners[id] = append(p.listeners[id], fn)
}

// Change sets the control's value and dispatches a change event to every
// listener, in registration order.
func (p *Page) Change(id, value string) error {
	el := p.Element(id)
	if !el.Exists() {
		return &MissingElementError{IDs: []string{id}}
	}
	el.SetValue(value)
	for _, fn := range p.listeners[id] {
		fn(value)
	}
	return nil
}

// HTML serialises the whole page.
func (p *Page) HTML() (string, error) {
	return p.doc.Html()
}

// Element is a single host page node.
type Element struct {
	id  string
	sel *goquery.Selection
}

// ID returns the element ID.
func (e *Element) ID() string {
	return e.id
}

// Exists reports whether the page has this element.
func (e *Element) Exists() bool {
	return e.sel.Length() > 0
}

// Text returns the element's text content.
func (e *Element) Text() string {
	return e.sel.Text()
}

// SetText replaces the element's content with text.
func (e *Element) SetText(text string) {
	e.sel.SetText(text)
}

// HTML returns the element's inner markup.
func (e *Element) HTML() string {
	html, err := e.sel.Html()
	if err != nil {
		return ""
	}
	return html
}

// SetHTML replaces the element's content with markup.
func (e *Element) SetHTML(markup string) {
	e.sel.SetHtml(markup)
}

// Attr returns an attribute value.
func (e *Element) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

// SetAttr sets an attribute value.
func (e *Element) SetAttr(name, value string) {
	e.sel.SetAttr(name, value)
}

// RemoveAttr removes an attribute.
func (e *Element) RemoveAttr(name string) {
	e.sel.RemoveAttr(name)
}

// Value returns the current value of a form control. For a select it is the
// selected option, or the first option when none is marked.
func (e *Element) Value() string {
	if goquery.NodeName(e.sel) != "select" {
		return e.sel.AttrOr("value", "")
	}
	opt := e.sel.Find("option[selected]").First()
	if opt.Length() == 0 {
		opt = e.sel.Find("option").First()
	}
	return optionValue(opt)
}

// SetValue sets a form control's value. For a select the matching option is
// marked selected; an unknown value leaves no option marked.
func (e *Element) SetValue(value string) {
	if goquery.NodeName(e.sel) != "select" {
		e.sel.SetAttr("value", value)
		return
	}
	e.sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		if optionValue(opt) == value {
			opt.SetAttr("selected", "")
		} else {
			opt.RemoveAttr("selected")
		}
	})
}

func optionValue(opt *goquery.Selection) string {
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(opt.Text())
}
