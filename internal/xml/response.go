package xml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ErrNotMultistatus is returned when a body parses as XML but is not a
// DAV:multistatus document.
var ErrNotMultistatus = errors.New("not a DAV:multistatus document")

// MultistatusResponse represents a multistatus response
type MultistatusResponse struct {
	Responses []Response
}

// Response represents a single response within a multistatus
type Response struct {
	Href      string
	PropStats []PropStat
	Status    string
}

// PropStat represents property status in a response. Props keeps the raw
// property elements; decoding into typed values happens in package props.
type PropStat struct {
	Props  []*etree.Element
	Status string
}

// StatusCode extracts the numeric code from an HTTP status line such as
// "HTTP/1.1 200 OK". It returns 0 when the line is malformed.
func StatusCode(line string) int {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return code
}

// OK reports whether the propstat carries a 2xx status. A missing status is
// treated as success; several servers leave it out for found properties.
func (p PropStat) OK() bool {
	if strings.TrimSpace(p.Status) == "" {
		return true
	}
	code := StatusCode(p.Status)
	return code >= 200 && code < 300
}

// Parse parses a multistatus response from an XML document
func (m *MultistatusResponse) Parse(doc *etree.Document) error {
	if doc == nil || doc.Root() == nil {
		return fmt.Errorf("empty document")
	}

	root := doc.Root()
	if !Matches(root, DAV, TagMultistatus) {
		return fmt.Errorf("%w: root is %s", ErrNotMultistatus, root.FullTag())
	}

	m.Responses = nil

	for _, respElem := range root.ChildElements() {
		if !Matches(respElem, DAV, TagResponse) {
			continue
		}
		resp := Response{}

		for _, child := range respElem.ChildElements() {
			switch {
			case Matches(child, DAV, TagHref):
				// Depth-1 replies may carry several hrefs; the first names the resource.
				if resp.Href == "" {
					resp.Href = strings.TrimSpace(child.Text())
				}
			case Matches(child, DAV, TagStatus):
				resp.Status = strings.TrimSpace(child.Text())
			case Matches(child, DAV, TagPropstat):
				resp.PropStats = append(resp.PropStats, parsePropStat(child))
			}
		}

		m.Responses = append(m.Responses, resp)
	}

	return nil
}

func parsePropStat(elem *etree.Element) PropStat {
	ps := PropStat{}
	for _, child := range elem.ChildElements() {
		switch {
		case Matches(child, DAV, TagProp):
			ps.Props = append(ps.Props, child.ChildElements()...)
		case Matches(child, DAV, TagStatus):
			ps.Status = strings.TrimSpace(child.Text())
		}
	}
	return ps
}

// ParseMultistatus reads a multistatus document from raw bytes.
func ParseMultistatus(body []byte) (*MultistatusResponse, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	var ms MultistatusResponse
	if err := ms.Parse(doc); err != nil {
		return nil, err
	}
	return &ms, nil
}

// Found returns the property elements reported with a 2xx propstat status.
func (r Response) Found() []*etree.Element {
	var out []*etree.Element
	for _, ps := range r.PropStats {
		if ps.OK() {
			out = append(out, ps.Props...)
		}
	}
	return out
}

// Failed returns the propstat entries whose status is not 2xx.
func (r Response) Failed() []PropStat {
	var out []PropStat
	for _, ps := range r.PropStats {
		if !ps.OK() {
			out = append(out, ps)
		}
	}
	return out
}

// ToXML converts a MultistatusResponse to an XML document
func (m *MultistatusResponse) ToXML() *etree.Document {
	doc := newDocument(TagMultistatus)
	AddSelectedNamespaces(doc, CalendarServer, AppleICal)
	root := doc.Root()

	for _, resp := range m.Responses {
		response := root.CreateElement(TagResponse)
		href := response.CreateElement(TagHref)
		href.SetText(resp.Href)

		if resp.Status != "" {
			status := response.CreateElement(TagStatus)
			status.SetText(resp.Status)
			continue
		}
		for _, propstat := range resp.PropStats {
			ps := response.CreateElement(TagPropstat)
			prop := ps.CreateElement(TagProp)
			for _, p := range propstat.Props {
				prop.AddChild(p)
			}
			status := ps.CreateElement(TagStatus)
			status.SetText(propstat.Status)
		}
	}

	return doc
}
