package props

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/davtasks/internal/xml"
)

type DisplayName struct {
	Value string
}

func (p DisplayName) Encode() *etree.Element {
	elem := createElement(xml.DAV, xml.TagDisplayName)
	elem.SetText(p.Value)
	return elem
}

func (p *DisplayName) Decode(elem *etree.Element) error {
	p.Value = elem.Text()
	return nil
}

// Resourcetype lists the child elements of DAV:resourcetype, e.g.
// {DAV:}collection and {urn:ietf:params:xml:ns:caldav}calendar.
type Resourcetype struct {
	Types []xml.PropName
}

// CalendarCollection is the resourcetype of a new calendar collection.
var CalendarCollection = Resourcetype{Types: []xml.PropName{
	{Namespace: xml.DAV, Local: xml.TagCollection},
	{Namespace: xml.CalDAV, Local: xml.TagCalendar},
}}

func (p Resourcetype) Encode() *etree.Element {
	elem := createElement(xml.DAV, xml.TagResourcetype)
	for _, t := range p.Types {
		elem.AddChild(createElement(t.Namespace, t.Local))
	}
	return elem
}

func (p *Resourcetype) Decode(elem *etree.Element) error {
	p.Types = nil
	for _, child := range elem.ChildElements() {
		p.Types = append(p.Types, xml.NameOf(child))
	}
	return nil
}

// Has reports whether the resource type includes {ns}local.
func (p Resourcetype) Has(ns, local string) bool {
	for _, t := range p.Types {
		if t.Namespace == ns && t.Local == local {
			return true
		}
	}
	return false
}

// IsCalendar reports whether the resource is a CalDAV calendar collection.
func (p Resourcetype) IsCalendar() bool {
	return p.Has(xml.CalDAV, xml.TagCalendar)
}

// CurrentUserPrincipal holds the principal href. Href stays empty when the
// server answers with DAV:unauthenticated.
type CurrentUserPrincipal struct {
	Href string
}

func (p CurrentUserPrincipal) Encode() *etree.Element {
	elem := createElement(xml.DAV, xml.TagCurrentUserPrincipal)
	href := elem.CreateElement(xml.TagHref)
	href.SetText(p.Href)
	return elem
}

func (p *CurrentUserPrincipal) Decode(elem *etree.Element) error {
	p.Href = strings.TrimSpace(firstHref(elem))
	return nil
}

type SyncToken struct {
	Value string
}

func (p SyncToken) Encode() *etree.Element {
	elem := createElement(xml.DAV, xml.TagSyncToken)
	elem.SetText(p.Value)
	return elem
}

func (p *SyncToken) Decode(elem *etree.Element) error {
	p.Value = strings.TrimSpace(elem.Text())
	return nil
}
