package props

import (
	"errors"
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/davtasks/internal/xml"
	"github.com/samber/mo"
)

// PropertySet holds the decoded properties of one response. A property that
// was not requested, not returned, or failed to decode is simply absent.
type PropertySet map[xml.PropName]Property

// DecodeSet decodes every supported element in elems. Elements without a
// typed decoder are skipped. Malformed elements are left out of the set and
// reported through the joined error; the returned set is always usable.
func DecodeSet(elems []*etree.Element) (PropertySet, error) {
	set := make(PropertySet, len(elems))
	var errs []error
	for _, elem := range elems {
		name := xml.NameOf(elem)
		newProp, ok := registry[name]
		if !ok {
			continue
		}
		p := newProp()
		if err := p.Decode(elem); err != nil {
			errs = append(errs, err)
			continue
		}
		set[name] = p
	}
	return set, errors.Join(errs...)
}

// Get returns the property stored under name when it has type T.
func Get[T Property](s PropertySet, name xml.PropName) mo.Option[T] {
	p, ok := s[name]
	if !ok {
		return mo.None[T]()
	}
	typed, ok := p.(T)
	if !ok {
		return mo.None[T]()
	}
	return mo.Some(typed)
}

func (s PropertySet) DisplayName() mo.Option[string] {
	p, ok := Get[*DisplayName](s, xml.PropDisplayName).Get()
	if !ok {
		return mo.None[string]()
	}
	return mo.Some(p.Value)
}

func (s PropertySet) ResourceType() mo.Option[Resourcetype] {
	p, ok := Get[*Resourcetype](s, xml.PropResourceType).Get()
	if !ok {
		return mo.None[Resourcetype]()
	}
	return mo.Some(*p)
}

// CurrentUserPrincipal is absent when the href is missing or blank.
func (s PropertySet) CurrentUserPrincipal() mo.Option[string] {
	p, ok := Get[*CurrentUserPrincipal](s, xml.PropCurrentUserPrincipal).Get()
	if !ok || strings.TrimSpace(p.Href) == "" {
		return mo.None[string]()
	}
	return mo.Some(p.Href)
}

func (s PropertySet) CalendarHomeSet() mo.Option[[]string] {
	p, ok := Get[*CalendarHomeSet](s, xml.PropCalendarHomeSet).Get()
	if !ok {
		return mo.None[[]string]()
	}
	return mo.Some(p.Hrefs)
}

func (s PropertySet) SupportedComponents() mo.Option[SupportedCalendarComponentSet] {
	p, ok := Get[*SupportedCalendarComponentSet](s, xml.PropSupportedCalendarComponentSet).Get()
	if !ok {
		return mo.None[SupportedCalendarComponentSet]()
	}
	return mo.Some(*p)
}

func (s PropertySet) CTag() mo.Option[string] {
	p, ok := Get[*GetCTag](s, xml.PropGetCTag).Get()
	if !ok {
		return mo.None[string]()
	}
	return mo.Some(p.Value)
}

func (s PropertySet) Color() mo.Option[string] {
	p, ok := Get[*CalendarColor](s, xml.PropCalendarColor).Get()
	if !ok {
		return mo.None[string]()
	}
	return mo.Some(p.Value)
}

// ColorValue is the calendar-color as ARGB, absent when the property is
// missing or not a #RRGGBB[AA] value.
func (s PropertySet) ColorValue() mo.Option[int32] {
	p, ok := Get[*CalendarColor](s, xml.PropCalendarColor).Get()
	if !ok {
		return mo.None[int32]()
	}
	argb, ok := p.ARGB()
	if !ok {
		return mo.None[int32]()
	}
	return mo.Some(argb)
}

func (s PropertySet) SyncToken() mo.Option[string] {
	p, ok := Get[*SyncToken](s, xml.PropSyncToken).Get()
	if !ok {
		return mo.None[string]()
	}
	return mo.Some(p.Value)
}
