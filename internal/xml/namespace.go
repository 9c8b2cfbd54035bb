package xml

import "github.com/beevik/etree"

// Namespace definitions for CalDAV and WebDAV
const (
	// DAV is the WebDAV namespace
	DAV = "DAV:"
	// CalDAV is the CalDAV namespace
	CalDAV = "urn:ietf:params:xml:ns:caldav"
	// CardDAV is the CardDAV namespace
	CardDAV = "urn:ietf:params:xml:ns:carddav"
	// CalendarServer is the Calendar Server namespace (used by some implementations)
	CalendarServer = "http://calendarserver.org/ns/"
	// AppleICal is the Apple iCal namespace carrying calendar-color
	AppleICal = "http://apple.com/ns/ical/"
)

// Prefixes used when this package writes request bodies. DAV: is the
// default namespace, so WebDAV elements carry no prefix.
const (
	PrefixCalDAV         = "C"
	PrefixCardDAV        = "CARD"
	PrefixCalendarServer = "CS"
	PrefixAppleICal      = "ICAL"
)

// prefixFor maps a namespace URI to the prefix used for outgoing documents.
func prefixFor(ns string) string {
	switch ns {
	case CalDAV:
		return PrefixCalDAV
	case CardDAV:
		return PrefixCardDAV
	case CalendarServer:
		return PrefixCalendarServer
	case AppleICal:
		return PrefixAppleICal
	}
	return ""
}

// namespaceFor maps an outgoing prefix back to its namespace URI.
func namespaceFor(prefix string) string {
	switch prefix {
	case PrefixCalDAV:
		return CalDAV
	case PrefixCardDAV:
		return CardDAV
	case PrefixCalendarServer:
		return CalendarServer
	case PrefixAppleICal:
		return AppleICal
	}
	return ""
}

// NameOf returns the namespaced name of elem. Elements of a parsed document
// resolve through their declarations; detached elements built with
// NewElement resolve through the outgoing prefix map. DAV: is the fallback.
func NameOf(elem *etree.Element) PropName {
	ns := elem.NamespaceURI()
	if ns == "" {
		ns = namespaceFor(elem.Space)
	}
	if ns == "" {
		ns = DAV
	}
	return PropName{Namespace: ns, Local: elem.Tag}
}

// AddNamespaces declares DAV: as the default namespace plus the prefixed
// CalDAV and CardDAV namespaces. CardDAV is declared even when no CardDAV
// element follows; some servers reject extended MKCOL bodies otherwise.
func AddNamespaces(doc *etree.Document) {
	root := doc.Root()
	if root == nil {
		return
	}
	root.CreateAttr("xmlns", DAV)
	root.CreateAttr("xmlns:"+PrefixCalDAV, CalDAV)
	root.CreateAttr("xmlns:"+PrefixCardDAV, CardDAV)
}

// AddSelectedNamespaces declares additional prefixed namespaces on the root.
func AddSelectedNamespaces(doc *etree.Document, namespaces ...string) {
	root := doc.Root()
	if root == nil {
		return
	}
	for _, ns := range namespaces {
		prefix := prefixFor(ns)
		if prefix == "" {
			continue
		}
		if root.SelectAttr("xmlns:"+prefix) != nil {
			continue
		}
		root.CreateAttr("xmlns:"+prefix, ns)
	}
}

// NewElement creates an element in namespace ns using the outgoing prefix map.
func NewElement(ns, tag string) *etree.Element {
	elem := etree.NewElement(tag)
	elem.Space = prefixFor(ns)
	return elem
}

// Matches reports whether elem is the element {ns}tag, resolving prefixes
// the way the sender declared them.
func Matches(elem *etree.Element, ns, tag string) bool {
	if elem == nil || elem.Tag != tag {
		return false
	}
	got := elem.NamespaceURI()
	// Some servers omit the DAV: declaration on otherwise valid documents.
	if got == "" && ns == DAV {
		return true
	}
	return got == ns
}
