package props

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"github.com/cyp0633/davtasks/internal/xml"
)

// Property interface for all property types (use pointer!)
type Property interface {
	Encode() *etree.Element
	Decode(element *etree.Element) error
}

// ErrMalformed marks a property element whose content cannot be decoded.
var ErrMalformed = errors.New("malformed property")

// registry maps each supported property name to a constructor, so every
// decode gets a fresh value.
var registry = map[xml.PropName]func() Property{
	xml.PropDisplayName:                   func() Property { return new(DisplayName) },
	xml.PropResourceType:                  func() Property { return new(Resourcetype) },
	xml.PropCurrentUserPrincipal:          func() Property { return new(CurrentUserPrincipal) },
	xml.PropSyncToken:                     func() Property { return new(SyncToken) },
	xml.PropCalendarHomeSet:               func() Property { return new(CalendarHomeSet) },
	xml.PropSupportedCalendarComponentSet: func() Property { return new(SupportedCalendarComponentSet) },
	xml.PropGetCTag:                       func() Property { return new(GetCTag) },
	xml.PropCalendarColor:                 func() Property { return new(CalendarColor) },
}

// Supported reports whether name has a typed decoder.
func Supported(name xml.PropName) bool {
	_, ok := registry[name]
	return ok
}

// createElement creates an element for {ns}name with the outgoing prefix.
func createElement(ns, name string) *etree.Element {
	return xml.NewElement(ns, name)
}

// firstHref returns the text of the first DAV:href child, or "".
func firstHref(elem *etree.Element) string {
	for _, child := range elem.ChildElements() {
		if xml.Matches(child, xml.DAV, xml.TagHref) {
			return child.Text()
		}
	}
	return ""
}

func malformed(name string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformed, name, fmt.Sprintf(format, args...))
}
