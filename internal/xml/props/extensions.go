package props

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/davtasks/internal/xml"
)

// Apple CalendarServer Extensions

type GetCTag struct {
	Value string
}

func (p GetCTag) Encode() *etree.Element {
	elem := createElement(xml.CalendarServer, xml.TagGetCTag)
	elem.SetText(p.Value)
	return elem
}

func (p *GetCTag) Decode(elem *etree.Element) error {
	p.Value = strings.TrimSpace(elem.Text())
	return nil
}

// CalendarColor is the Apple iCal calendar-color property, "#RRGGBBAA".
type CalendarColor struct {
	Value string
}

// NewCalendarColor builds the property from an ARGB color value.
func NewCalendarColor(argb int32) CalendarColor {
	return CalendarColor{Value: FormatColor(argb)}
}

func (p CalendarColor) Encode() *etree.Element {
	elem := createElement(xml.AppleICal, xml.TagCalendarColor)
	if p.Value != "" {
		elem.SetText(p.Value)
	}
	return elem
}

func (p *CalendarColor) Decode(elem *etree.Element) error {
	p.Value = strings.TrimSpace(elem.Text())
	return nil
}

// ARGB converts the stored value back to an ARGB integer.
func (p CalendarColor) ARGB() (int32, bool) {
	return ParseColor(p.Value)
}

// FormatColor renders an ARGB color as #RRGGBBAA.
func FormatColor(argb int32) string {
	u := uint32(argb)
	return fmt.Sprintf("#%06X%02X", u&0xFFFFFF, (u>>24)&0xFF)
}

// ParseColor reads #RRGGBB or #RRGGBBAA into an ARGB value. A missing alpha
// channel means fully opaque.
func ParseColor(s string) (int32, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, false
	}
	if len(s) == 6 {
		return int32(uint32(v) | 0xFF000000), true
	}
	rgb := uint32(v) >> 8
	alpha := uint32(v) & 0xFF
	return int32(alpha<<24 | rgb), true
}
