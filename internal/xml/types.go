package xml

// Common XML tag names used in CalDAV
const (
	TagPropfind       = "propfind"
	TagProp           = "prop"
	TagMultistatus    = "multistatus"
	TagResponse       = "response"
	TagHref           = "href"
	TagPropstat       = "propstat"
	TagStatus         = "status"
	TagError          = "error"
	TagResourcetype   = "resourcetype"
	TagCollection     = "collection"
	TagCalendar       = "calendar"
	TagMkcol          = "mkcol"
	TagPropertyUpdate = "propertyupdate"
	TagSet            = "set"
	TagRemove         = "remove"
	TagDisplayName    = "displayname"
	TagComp           = "comp"

	TagCurrentUserPrincipal          = "current-user-principal"
	TagCalendarHomeSet               = "calendar-home-set"
	TagSupportedCalendarComponentSet = "supported-calendar-component-set"
	TagGetCTag                       = "getctag"
	TagCalendarColor                 = "calendar-color"
	TagSyncToken                     = "sync-token"
)

// PropName identifies a property by namespace and local name.
type PropName struct {
	Namespace string
	Local     string
}

// Well-known properties requested during discovery.
var (
	PropCurrentUserPrincipal          = PropName{DAV, TagCurrentUserPrincipal}
	PropCalendarHomeSet               = PropName{CalDAV, TagCalendarHomeSet}
	PropResourceType                  = PropName{DAV, TagResourcetype}
	PropDisplayName                   = PropName{DAV, TagDisplayName}
	PropSupportedCalendarComponentSet = PropName{CalDAV, TagSupportedCalendarComponentSet}
	PropGetCTag                       = PropName{CalendarServer, TagGetCTag}
	PropCalendarColor                 = PropName{AppleICal, TagCalendarColor}
	PropSyncToken                     = PropName{DAV, TagSyncToken}
)
