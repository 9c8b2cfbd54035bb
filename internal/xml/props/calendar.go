package props

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/davtasks/internal/xml"
)

// CalendarHomeSet keeps every href the server listed; callers decide what a
// count other than one means.
type CalendarHomeSet struct {
	Hrefs []string
}

func (p CalendarHomeSet) Encode() *etree.Element {
	elem := createElement(xml.CalDAV, xml.TagCalendarHomeSet)
	for _, h := range p.Hrefs {
		href := elem.CreateElement(xml.TagHref)
		href.SetText(h)
	}
	return elem
}

func (p *CalendarHomeSet) Decode(elem *etree.Element) error {
	p.Hrefs = nil
	for _, child := range elem.ChildElements() {
		if xml.Matches(child, xml.DAV, xml.TagHref) {
			p.Hrefs = append(p.Hrefs, strings.TrimSpace(child.Text()))
		}
	}
	return nil
}

type SupportedCalendarComponentSet struct {
	Components []string
}

func (p SupportedCalendarComponentSet) Encode() *etree.Element {
	elem := createElement(xml.CalDAV, xml.TagSupportedCalendarComponentSet)
	for _, component := range p.Components {
		compElem := createElement(xml.CalDAV, xml.TagComp)
		compElem.CreateAttr("name", component)
		elem.AddChild(compElem)
	}
	return elem
}

func (p *SupportedCalendarComponentSet) Decode(elem *etree.Element) error {
	p.Components = nil
	for _, child := range elem.ChildElements() {
		if !xml.Matches(child, xml.CalDAV, xml.TagComp) {
			continue
		}
		name := child.SelectAttrValue("name", "")
		if name == "" {
			return malformed(xml.TagSupportedCalendarComponentSet, "comp without name")
		}
		p.Components = append(p.Components, strings.ToUpper(name))
	}
	return nil
}

// Supports reports whether component (e.g. "VTODO") is in the set.
func (p SupportedCalendarComponentSet) Supports(component string) bool {
	for _, c := range p.Components {
		if strings.EqualFold(c, component) {
			return true
		}
	}
	return false
}
