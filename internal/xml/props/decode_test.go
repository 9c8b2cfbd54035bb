package props

import (
	"errors"
	"testing"

	"github.com/beevik/etree"
	"github.com/cyp0633/davtasks/internal/xml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// propElements parses the children of a <prop> fragment the way they arrive
// inside a multistatus reply, prefixes resolved against the root.
func propElements(t *testing.T, inner string) []*etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(
		`<d:prop xmlns:d="DAV:" xmlns:cal="urn:ietf:params:xml:ns:caldav" `+
			`xmlns:cs="http://calendarserver.org/ns/" xmlns:ic="http://apple.com/ns/ical/">`+
			inner+`</d:prop>`))
	return doc.Root().ChildElements()
}

func TestDecodeSet(t *testing.T) {
	set, err := DecodeSet(propElements(t, `
		<d:resourcetype><d:collection/><cal:calendar/></d:resourcetype>
		<d:displayname>Chores</d:displayname>
		<cal:supported-calendar-component-set>
			<cal:comp name="VEVENT"/><cal:comp name="vtodo"/>
		</cal:supported-calendar-component-set>
		<cs:getctag> 17 </cs:getctag>
		<ic:calendar-color>#00FF00</ic:calendar-color>
		<d:sync-token>http://sabre.io/ns/sync/17</d:sync-token>
		<d:getetag>"ignored"</d:getetag>`))
	require.NoError(t, err)
	assert.Len(t, set, 6)

	rt, ok := set.ResourceType().Get()
	require.True(t, ok)
	assert.True(t, rt.IsCalendar())
	assert.True(t, rt.Has(xml.DAV, xml.TagCollection))

	assert.Equal(t, "Chores", set.DisplayName().OrEmpty())
	assert.Equal(t, "17", set.CTag().OrEmpty())
	assert.Equal(t, "#00FF00", set.Color().OrEmpty())
	assert.Equal(t, int32(-16711936), set.ColorValue().OrEmpty())
	assert.Equal(t, "http://sabre.io/ns/sync/17", set.SyncToken().OrEmpty())

	comps, ok := set.SupportedComponents().Get()
	require.True(t, ok)
	assert.Equal(t, []string{"VEVENT", "VTODO"}, comps.Components)
}

func TestDecodeSetDefaultNamespace(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(
		`<prop xmlns="DAV:"><displayname>Inbox</displayname>`+
			`<calendar-home-set xmlns="urn:ietf:params:xml:ns:caldav"><href xmlns="DAV:">/home/</href></calendar-home-set></prop>`))

	set, err := DecodeSet(doc.Root().ChildElements())
	require.NoError(t, err)
	assert.Equal(t, "Inbox", set.DisplayName().OrEmpty())
	assert.Equal(t, []string{"/home/"}, set.CalendarHomeSet().OrEmpty())
}

func TestDecodeSetMalformed(t *testing.T) {
	set, err := DecodeSet(propElements(t, `
		<d:displayname>Broken</d:displayname>
		<cal:supported-calendar-component-set><cal:comp/></cal:supported-calendar-component-set>`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))

	// The valid property survives.
	assert.Equal(t, "Broken", set.DisplayName().OrEmpty())
	assert.True(t, set.SupportedComponents().IsAbsent())
}

func TestCurrentUserPrincipal(t *testing.T) {
	tests := []struct {
		name    string
		inner   string
		want    string
		present bool
	}{
		{
			name:    "href",
			inner:   `<d:current-user-principal><d:href> /principals/alice/ </d:href></d:current-user-principal>`,
			want:    "/principals/alice/",
			present: true,
		},
		{
			name:  "unauthenticated",
			inner: `<d:current-user-principal><d:unauthenticated/></d:current-user-principal>`,
		},
		{
			name:  "blank href",
			inner: `<d:current-user-principal><d:href>  </d:href></d:current-user-principal>`,
		},
		{
			name:  "not returned",
			inner: `<d:displayname>x</d:displayname>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := DecodeSet(propElements(t, tt.inner))
			require.NoError(t, err)
			got, ok := set.CurrentUserPrincipal().Get()
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalendarHomeSetHrefs(t *testing.T) {
	tests := []struct {
		name  string
		inner string
		want  []string
	}{
		{
			name:  "one",
			inner: `<cal:calendar-home-set><d:href>/calendars/alice/</d:href></cal:calendar-home-set>`,
			want:  []string{"/calendars/alice/"},
		},
		{
			name:  "two",
			inner: `<cal:calendar-home-set><d:href>/a/</d:href><d:href>/b/</d:href></cal:calendar-home-set>`,
			want:  []string{"/a/", "/b/"},
		},
		{
			name:  "none",
			inner: `<cal:calendar-home-set/>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := DecodeSet(propElements(t, tt.inner))
			require.NoError(t, err)
			hrefs, ok := set.CalendarHomeSet().Get()
			require.True(t, ok)
			assert.Equal(t, tt.want, hrefs)
		})
	}
}

func TestGetWrongType(t *testing.T) {
	set := PropertySet{xml.PropDisplayName: &GetCTag{Value: "1"}}
	assert.True(t, Get[*DisplayName](set, xml.PropDisplayName).IsAbsent())
	assert.True(t, set.DisplayName().IsAbsent())
	assert.True(t, Supported(xml.PropCalendarColor))
	assert.False(t, Supported(xml.PropName{Namespace: xml.DAV, Local: "getetag"}))
}

func TestColorValue(t *testing.T) {
	tests := []struct {
		name    string
		inner   string
		want    int32
		present bool
	}{
		{"with alpha", `<ic:calendar-color>#FF00FF80</ic:calendar-color>`, int32(-2130771713), true},
		{"opaque", `<ic:calendar-color>#0000FF</ic:calendar-color>`, int32(-16776961), true},
		{"named color", `<ic:calendar-color>red</ic:calendar-color>`, 0, false},
		{"empty", `<ic:calendar-color/>`, 0, false},
		{"not returned", `<d:displayname>x</d:displayname>`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := DecodeSet(propElements(t, tt.inner))
			require.NoError(t, err)
			got, ok := set.ColorValue().Get()
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
