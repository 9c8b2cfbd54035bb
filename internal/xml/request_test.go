package xml

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, doc *etree.Document) *etree.Document {
	t.Helper()
	body, err := Bytes(doc)
	require.NoError(t, err)
	parsed := etree.NewDocument()
	require.NoError(t, parsed.ReadFromBytes(body))
	return parsed
}

func TestPropfindRequestToXML(t *testing.T) {
	req := &PropfindRequest{Prop: []PropName{
		PropCurrentUserPrincipal,
		PropCalendarHomeSet,
		PropCalendarColor,
		PropGetCTag,
	}}

	body, err := Bytes(req.ToXML())
	require.NoError(t, err)
	s := string(body)

	assert.Contains(t, s, `<propfind xmlns="DAV:"`)
	assert.Contains(t, s, `xmlns:C="urn:ietf:params:xml:ns:caldav"`)
	assert.Contains(t, s, `<current-user-principal/>`)
	assert.Contains(t, s, `<C:calendar-home-set/>`)
	assert.Contains(t, s, `<ICAL:calendar-color/>`)
	assert.Contains(t, s, `<CS:getctag/>`)

	var parsed PropfindRequest
	require.NoError(t, parsed.Parse(roundTrip(t, req.ToXML())))
	assert.Equal(t, req.Prop, parsed.Prop)
}

func TestMkcolRequestNamespaces(t *testing.T) {
	color := NewElement(AppleICal, TagCalendarColor)
	color.SetText("#FF00FF00")
	req := &MkcolRequest{Props: []*etree.Element{NewElement(DAV, TagDisplayName), color}}

	body, err := Bytes(req.ToXML())
	require.NoError(t, err)
	s := string(body)

	assert.Contains(t, s, `<mkcol xmlns="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav" xmlns:CARD="urn:ietf:params:xml:ns:carddav"`)
	assert.Contains(t, s, `xmlns:ICAL="http://apple.com/ns/ical/"`)
	assert.Contains(t, s, `<set><prop><displayname/><ICAL:calendar-color>#FF00FF00</ICAL:calendar-color></prop></set>`)

	var parsed MkcolRequest
	require.NoError(t, parsed.Parse(roundTrip(t, req.ToXML())))
	require.Len(t, parsed.Props, 2)
	assert.True(t, Matches(parsed.Props[0], DAV, TagDisplayName))
	assert.True(t, Matches(parsed.Props[1], AppleICal, TagCalendarColor))
}

func TestProppatchRequestToXML(t *testing.T) {
	tests := []struct {
		name       string
		req        *ProppatchRequest
		wantSet    int
		wantRemove int
	}{
		{
			name:    "set only",
			req:     &ProppatchRequest{Set: []*etree.Element{NewElement(DAV, TagDisplayName)}},
			wantSet: 1,
		},
		{
			name: "set and remove",
			req: &ProppatchRequest{
				Set:    []*etree.Element{NewElement(DAV, TagDisplayName)},
				Remove: []*etree.Element{NewElement(AppleICal, TagCalendarColor)},
			},
			wantSet:    1,
			wantRemove: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := roundTrip(t, tt.req.ToXML())
			root := doc.Root()
			assert.True(t, Matches(root, DAV, TagPropertyUpdate))
			assert.Equal(t, CardDAV, root.SelectAttrValue("xmlns:CARD", ""))

			var parsed ProppatchRequest
			require.NoError(t, parsed.Parse(doc))
			assert.Len(t, parsed.Set, tt.wantSet)
			assert.Len(t, parsed.Remove, tt.wantRemove)
			if tt.wantRemove > 0 {
				assert.True(t, Matches(parsed.Remove[0], AppleICal, TagCalendarColor))
			}
		})
	}
}

func TestParseRejectsWrongRoot(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(`<D:propfind xmlns:D="DAV:"/>`))

	assert.Error(t, (&MkcolRequest{}).Parse(doc))
	assert.Error(t, (&ProppatchRequest{}).Parse(doc))
	assert.NoError(t, (&PropfindRequest{}).Parse(doc))
	assert.Error(t, (&PropfindRequest{}).Parse(nil))
}
