package xml

import (
	"fmt"

	"github.com/beevik/etree"
)

// PropfindRequest represents a PROPFIND request
type PropfindRequest struct {
	Prop []PropName
}

// ToXML converts a PropfindRequest to an XML document
func (r *PropfindRequest) ToXML() *etree.Document {
	doc := newDocument(TagPropfind)
	AddSelectedNamespaces(doc, CalendarServer, AppleICal)

	prop := doc.Root().CreateElement(TagProp)
	for _, name := range r.Prop {
		prop.AddChild(NewElement(name.Namespace, name.Local))
	}
	return doc
}

// MkcolRequest represents an extended MKCOL request (RFC 5689). Props are
// already encoded property elements, placed under mkcol/set/prop.
type MkcolRequest struct {
	Props []*etree.Element
}

// ToXML converts a MkcolRequest to an XML document
func (r *MkcolRequest) ToXML() *etree.Document {
	doc := newDocument(TagMkcol)
	declareUsed(doc, r.Props)

	prop := doc.Root().CreateElement(TagSet).CreateElement(TagProp)
	for _, p := range r.Props {
		prop.AddChild(p)
	}
	return doc
}

// ProppatchRequest represents a PROPPATCH request. Set holds encoded
// property values; Remove holds empty elements naming properties to drop.
type ProppatchRequest struct {
	Set    []*etree.Element
	Remove []*etree.Element
}

// ToXML converts a ProppatchRequest to an XML document
func (r *ProppatchRequest) ToXML() *etree.Document {
	doc := newDocument(TagPropertyUpdate)
	declareUsed(doc, r.Set)
	declareUsed(doc, r.Remove)

	root := doc.Root()
	if len(r.Set) > 0 {
		prop := root.CreateElement(TagSet).CreateElement(TagProp)
		for _, p := range r.Set {
			prop.AddChild(p)
		}
	}
	if len(r.Remove) > 0 {
		prop := root.CreateElement(TagRemove).CreateElement(TagProp)
		for _, p := range r.Remove {
			prop.AddChild(p)
		}
	}
	return doc
}

func newDocument(rootTag string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateElement(rootTag)
	AddNamespaces(doc)
	return doc
}

// declareUsed adds namespace declarations for vendor prefixes found in elems.
func declareUsed(doc *etree.Document, elems []*etree.Element) {
	for _, e := range elems {
		switch e.Space {
		case PrefixCalendarServer:
			AddSelectedNamespaces(doc, CalendarServer)
		case PrefixAppleICal:
			AddSelectedNamespaces(doc, AppleICal)
		}
		declareUsed(doc, e.ChildElements())
	}
}

// Bytes serializes doc without indentation.
func Bytes(doc *etree.Document) ([]byte, error) {
	return doc.WriteToBytes()
}

// Parse parses a PROPFIND request from an XML document. An empty body is
// not handled here; callers treat it as allprop.
func (r *PropfindRequest) Parse(doc *etree.Document) error {
	if doc == nil || doc.Root() == nil {
		return fmt.Errorf("empty document")
	}

	root := doc.Root()
	if !Matches(root, DAV, TagPropfind) {
		return fmt.Errorf("invalid root tag: %s", root.FullTag())
	}

	r.Prop = nil
	for _, child := range root.ChildElements() {
		if !Matches(child, DAV, TagProp) {
			continue
		}
		for _, p := range child.ChildElements() {
			r.Prop = append(r.Prop, NameOf(p))
		}
	}
	return nil
}

// Parse parses an extended MKCOL request from an XML document.
func (r *MkcolRequest) Parse(doc *etree.Document) error {
	if doc == nil || doc.Root() == nil {
		return fmt.Errorf("empty document")
	}

	root := doc.Root()
	if !Matches(root, DAV, TagMkcol) {
		return fmt.Errorf("invalid root tag: %s", root.FullTag())
	}

	r.Props = nil
	for _, set := range root.ChildElements() {
		if Matches(set, DAV, TagSet) {
			r.Props = append(r.Props, propChildren(set)...)
		}
	}
	return nil
}

// Parse parses a PROPPATCH request from an XML document.
func (r *ProppatchRequest) Parse(doc *etree.Document) error {
	if doc == nil || doc.Root() == nil {
		return fmt.Errorf("empty document")
	}

	root := doc.Root()
	if !Matches(root, DAV, TagPropertyUpdate) {
		return fmt.Errorf("invalid root tag: %s", root.FullTag())
	}

	r.Set = nil
	r.Remove = nil
	for _, child := range root.ChildElements() {
		switch {
		case Matches(child, DAV, TagSet):
			r.Set = append(r.Set, propChildren(child)...)
		case Matches(child, DAV, TagRemove):
			r.Remove = append(r.Remove, propChildren(child)...)
		}
	}
	return nil
}

func propChildren(elem *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, child := range elem.ChildElements() {
		if Matches(child, DAV, TagProp) {
			out = append(out, child.ChildElements()...)
		}
	}
	return out
}
