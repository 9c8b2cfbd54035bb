package davclient

import (
	"context"

	"github.com/beevik/etree"
	"github.com/cyp0633/davtasks/internal/xml"
	"github.com/cyp0633/davtasks/internal/xml/props"
	"github.com/google/uuid"
)

// CreateCollection creates a task calendar named displayName below c's base
// URL, which should be the home set. The collection path is a fresh UUID.
// It returns the location of the new collection.
func CreateCollection(ctx context.Context, c *Client, displayName string, color int32) (string, error) {
	body, err := xml.Bytes(MkcolBody(displayName, color).ToXML())
	if err != nil {
		return "", stepErr(StepCreate, err)
	}

	target := c.BaseURL().JoinPath(uuid.NewString() + "/").String()
	loc, err := c.DoMKCOL(ctx, target, body)
	if err != nil {
		return "", stepErr(StepCreate, err)
	}
	c.Logger().Info("created calendar collection", "location", loc.String(), "display_name", displayName)
	return loc.String(), nil
}

// UpdateCollection sets the display name and color of the collection at c's
// base URL. NoColor removes the calendar-color property.
func UpdateCollection(ctx context.Context, c *Client, displayName string, color int32) (string, error) {
	loc, err := c.DoPROPPATCH(ctx, "", ProppatchBody(displayName, color))
	if err != nil {
		return "", stepErr(StepUpdate, err)
	}
	c.Logger().Info("updated calendar collection", "location", loc.String(), "display_name", displayName)
	return loc.String(), nil
}

// DeleteCollection deletes the collection at c's base URL unconditionally.
func DeleteCollection(ctx context.Context, c *Client) error {
	if err := c.DoDELETE(ctx, ""); err != nil {
		return stepErr(StepDelete, err)
	}
	c.Logger().Info("deleted calendar collection", "location", c.BaseURL().String())
	return nil
}

// MkcolBody builds the extended MKCOL request for a task calendar.
func MkcolBody(displayName string, color int32) *xml.MkcolRequest {
	elems := []*etree.Element{
		props.CalendarCollection.Encode(),
		props.DisplayName{Value: displayName}.Encode(),
	}
	if color != NoColor {
		elems = append(elems, props.NewCalendarColor(color).Encode())
	}
	elems = append(elems, props.SupportedCalendarComponentSet{Components: []string{TaskComponent}}.Encode())
	return &xml.MkcolRequest{Props: elems}
}

// ProppatchBody builds the PROPPATCH request renaming and recoloring a
// collection.
func ProppatchBody(displayName string, color int32) *xml.ProppatchRequest {
	req := &xml.ProppatchRequest{
		Set: []*etree.Element{props.DisplayName{Value: displayName}.Encode()},
	}
	if color != NoColor {
		req.Set = append(req.Set, props.NewCalendarColor(color).Encode())
	} else {
		req.Remove = append(req.Remove, props.CalendarColor{}.Encode())
	}
	return req
}
