package davclient

import (
	"context"

	"github.com/cyp0633/davtasks/internal/httpclient"
	"github.com/cyp0633/davtasks/internal/xml"
)

var listProps = []xml.PropName{
	xml.PropResourceType,
	xml.PropDisplayName,
	xml.PropSupportedCalendarComponentSet,
	xml.PropGetCTag,
	xml.PropCalendarColor,
	xml.PropSyncToken,
}

// ListCalendars lists the members of c's base URL, which should be a home
// set, that are calendars supporting VTODO. Server order is kept.
func ListCalendars(ctx context.Context, c *Client) ([]Calendar, error) {
	logger := c.Logger()
	calendars := make([]Calendar, 0)

	err := c.DoPROPFIND(ctx, "", 1, listProps, func(resp httpclient.PropfindResponse) error {
		if resp.Relation != httpclient.RelationMember {
			return nil
		}

		rt, ok := resp.Props.ResourceType().Get()
		if !ok || !rt.IsCalendar() {
			logger.Debug("skipping non-calendar member", "href", resp.Href)
			return nil
		}
		comps, ok := resp.Props.SupportedComponents().Get()
		if !ok || !comps.Supports(TaskComponent) {
			logger.Debug("skipping calendar without task support", "href", resp.Href)
			return nil
		}

		calendars = append(calendars, describe(resp))
		return nil
	})
	if err != nil {
		return nil, stepErr(StepList, err)
	}

	logger.Debug("listed task calendars", "count", len(calendars))
	return calendars, nil
}

func describe(resp httpclient.PropfindResponse) Calendar {
	return Calendar{
		Href:        resp.Location.String(),
		DisplayName: resp.Props.DisplayName().OrEmpty(),
		Color:       resp.Props.Color().OrEmpty(),
		ColorValue:  resp.Props.ColorValue().OrElse(NoColor),
		ChangeTag:   resp.Props.CTag().OrEmpty(),
		SyncToken:   resp.Props.SyncToken().OrEmpty(),
	}
}
