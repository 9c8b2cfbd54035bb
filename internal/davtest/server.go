// Package davtest runs an in-memory CalDAV server for tests. It knows just
// enough of the protocol to exercise discovery and collection management:
// principal lookup, home-set lookup, depth-1 listing, MKCOL, PROPPATCH and
// DELETE of calendar collections.
package davtest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/beevik/etree"
	"github.com/cyp0633/davtasks/internal/xml"
	"github.com/cyp0633/davtasks/internal/xml/props"
	"github.com/emersion/go-ical"
)

const (
	DefaultPrincipal = "/principals/alice/"
	DefaultHomeSet   = "/calendars/alice/"
)

// Request is a request the server received.
type Request struct {
	Method string
	Path   string
	Depth  string
	Body   string
}

// Collection is a child of the home set.
type Collection struct {
	Name        string
	DisplayName string
	Color       string
	Calendar    bool
	Components  []string
	CTag        string
	SyncToken   string
	order       int
}

// Server is an httptest server speaking a subset of CalDAV.
type Server struct {
	*httptest.Server

	Username string
	Password string

	mu            sync.Mutex
	principalPath string
	homeSetHrefs  []string
	status        map[string]int
	requests      []Request
	collections   map[string]*Collection
	next          int
}

// NewServer starts a plain HTTP server requiring Basic auth for user/pass.
func NewServer(user, pass string) *Server {
	s := newServer(user, pass)
	s.Server = httptest.NewServer(s)
	return s
}

// NewTLSServer is NewServer over TLS with a self-signed certificate.
func NewTLSServer(user, pass string) *Server {
	s := newServer(user, pass)
	s.Server = httptest.NewTLSServer(s)
	return s
}

func newServer(user, pass string) *Server {
	return &Server{
		Username:      user,
		Password:      pass,
		principalPath: DefaultPrincipal,
		homeSetHrefs:  []string{DefaultHomeSet},
		status:        make(map[string]int),
		collections:   make(map[string]*Collection),
	}
}

// SetPrincipal changes the current-user-principal href. An empty path makes
// the server report no principal.
func (s *Server) SetPrincipal(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principalPath = path
}

// SetHomeSet changes the calendar-home-set hrefs of the principal.
func (s *Server) SetHomeSet(hrefs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.homeSetHrefs = hrefs
}

// SetStatus makes the server answer method on path with a bare status code
// once the request is authenticated.
func (s *Server) SetStatus(method, path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[method+" "+path] = code
}

// AddCollection stores c under the home set.
func (s *Server) AddCollection(c Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	c.order = s.next
	s.collections[c.Name] = &c
}

// Collection returns a copy of the named collection.
func (s *Server) Collection(name string) (Collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return Collection{}, false
	}
	return *c, true
}

// Collections returns the names of all stored collections.
func (s *Server) Collections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.collections))
	for n := range s.collections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: req.Method,
		Path:   req.URL.Path,
		Depth:  req.Header.Get("Depth"),
		Body:   string(body),
	})
	status, overridden := s.status[req.Method+" "+req.URL.Path]
	s.mu.Unlock()

	if s.Username != "" {
		user, pass, ok := req.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="davtest"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}
	if overridden {
		http.Error(w, http.StatusText(status), status)
		return
	}

	doc := etree.NewDocument()
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := doc.ReadFromBytes(body); err != nil {
			http.Error(w, "Bad XML", http.StatusBadRequest)
			return
		}
	}

	switch req.Method {
	case "PROPFIND":
		s.handlePropfind(w, req, doc)
	case "MKCOL":
		s.handleMkcol(w, req, doc)
	case "PROPPATCH":
		s.handleProppatch(w, req, doc)
	case http.MethodDelete:
		s.handleDelete(w, req)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePropfind(w http.ResponseWriter, req *http.Request, doc *etree.Document) {
	var pf xml.PropfindRequest
	if doc.Root() != nil {
		if err := pf.Parse(doc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := req.URL.Path
	var ms xml.MultistatusResponse
	switch {
	case p == "/" || p == "/.well-known/caldav" || p == "/.well-known/caldav/":
		ms.Responses = append(ms.Responses, s.respond(p, pf.Prop, s.rootProps()))
	case p == s.principalPath:
		ms.Responses = append(ms.Responses, s.respond(p, pf.Prop, s.principalProps()))
	case p == DefaultHomeSet:
		ms.Responses = append(ms.Responses, s.respond(p, pf.Prop, homeProps()))
		if req.Header.Get("Depth") == "1" {
			for _, c := range s.ordered() {
				ms.Responses = append(ms.Responses, s.respond(DefaultHomeSet+c.Name+"/", pf.Prop, c.props()))
			}
		}
	default:
		c, ok := s.collections[collectionName(p)]
		if !ok {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		ms.Responses = append(ms.Responses, s.respond(p, pf.Prop, c.props()))
	}

	writeMultistatus(w, &ms)
}

func (s *Server) rootProps() []props.Property {
	if s.principalPath == "" {
		return nil
	}
	return []props.Property{&props.CurrentUserPrincipal{Href: s.principalPath}}
}

func (s *Server) principalProps() []props.Property {
	return []props.Property{
		&props.CurrentUserPrincipal{Href: s.principalPath},
		&props.CalendarHomeSet{Hrefs: s.homeSetHrefs},
		&props.Resourcetype{Types: []xml.PropName{{Namespace: xml.DAV, Local: "principal"}}},
	}
}

func homeProps() []props.Property {
	return []props.Property{
		&props.Resourcetype{Types: []xml.PropName{{Namespace: xml.DAV, Local: xml.TagCollection}}},
		&props.DisplayName{Value: "Home"},
	}
}

func (c *Collection) props() []props.Property {
	rt := &props.Resourcetype{Types: []xml.PropName{{Namespace: xml.DAV, Local: xml.TagCollection}}}
	if c.Calendar {
		rt = &props.Resourcetype{Types: props.CalendarCollection.Types}
	}
	out := []props.Property{rt}
	if c.DisplayName != "" {
		out = append(out, &props.DisplayName{Value: c.DisplayName})
	}
	if c.Color != "" {
		out = append(out, &props.CalendarColor{Value: c.Color})
	}
	if c.Components != nil {
		out = append(out, &props.SupportedCalendarComponentSet{Components: c.Components})
	}
	if c.CTag != "" {
		out = append(out, &props.GetCTag{Value: c.CTag})
	}
	if c.SyncToken != "" {
		out = append(out, &props.SyncToken{Value: c.SyncToken})
	}
	return out
}

// respond answers the requested names from available, splitting them into
// a 200 and a 404 propstat.
func (s *Server) respond(href string, requested []xml.PropName, available []props.Property) xml.Response {
	byName := make(map[xml.PropName]props.Property, len(available))
	for _, p := range available {
		e := p.Encode()
		byName[xml.NameOf(e)] = p
	}

	var found, missing []*etree.Element
	for _, name := range requested {
		if p, ok := byName[name]; ok {
			found = append(found, p.Encode())
		} else {
			missing = append(missing, xml.NewElement(name.Namespace, name.Local))
		}
	}

	resp := xml.Response{Href: href}
	if len(found) > 0 {
		resp.PropStats = append(resp.PropStats, xml.PropStat{Props: found, Status: "HTTP/1.1 200 OK"})
	}
	if len(missing) > 0 {
		resp.PropStats = append(resp.PropStats, xml.PropStat{Props: missing, Status: "HTTP/1.1 404 Not Found"})
	}
	return resp
}

func (s *Server) handleMkcol(w http.ResponseWriter, req *http.Request, doc *etree.Document) {
	if path.Dir(path.Clean(req.URL.Path)) != path.Clean(DefaultHomeSet) {
		http.Error(w, "Conflict", http.StatusConflict)
		return
	}
	var mk xml.MkcolRequest
	if doc.Root() != nil {
		if err := mk.Parse(doc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := collectionName(req.URL.Path)
	if _, exists := s.collections[name]; exists {
		http.Error(w, "Collection already exists", http.StatusMethodNotAllowed)
		return
	}

	c := &Collection{Name: name, CTag: "1", SyncToken: "http://davtest/sync/1"}
	for _, elem := range mk.Props {
		if err := c.apply(elem); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
	}
	s.next++
	c.order = s.next
	s.collections[name] = c
	w.Header().Set("Location", DefaultHomeSet+name+"/")
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleProppatch(w http.ResponseWriter, req *http.Request, doc *etree.Document) {
	var pp xml.ProppatchRequest
	if doc.Root() == nil {
		http.Error(w, "Missing body", http.StatusBadRequest)
		return
	}
	if err := pp.Parse(doc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collectionName(req.URL.Path)]
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	// Unknown properties fail the whole patch, as PROPPATCH is atomic.
	var forbidden, dependent []*etree.Element
	for _, elem := range pp.Set {
		name := xml.NameOf(elem)
		if props.Supported(name) {
			dependent = append(dependent, xml.NewElement(name.Namespace, name.Local))
		} else {
			forbidden = append(forbidden, xml.NewElement(name.Namespace, name.Local))
		}
	}
	if len(forbidden) > 0 {
		resp := xml.Response{Href: req.URL.Path}
		resp.PropStats = append(resp.PropStats, xml.PropStat{Props: forbidden, Status: "HTTP/1.1 403 Forbidden"})
		if len(dependent) > 0 {
			resp.PropStats = append(resp.PropStats, xml.PropStat{Props: dependent, Status: "HTTP/1.1 424 Failed Dependency"})
		}
		writeMultistatus(w, &xml.MultistatusResponse{Responses: []xml.Response{resp}})
		return
	}

	var done, absent []*etree.Element
	for _, elem := range pp.Set {
		if err := c.apply(elem); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		name := xml.NameOf(elem)
		done = append(done, xml.NewElement(name.Namespace, name.Local))
	}
	for _, elem := range pp.Remove {
		name := xml.NameOf(elem)
		// Like several deployed servers, report 404 for a property that
		// was never set.
		if name == xml.PropCalendarColor && c.Color == "" {
			absent = append(absent, xml.NewElement(name.Namespace, name.Local))
			continue
		}
		if name == xml.PropCalendarColor {
			c.Color = ""
		}
		done = append(done, xml.NewElement(name.Namespace, name.Local))
	}
	bump(c)

	resp := xml.Response{Href: req.URL.Path}
	if len(done) > 0 {
		resp.PropStats = append(resp.PropStats, xml.PropStat{Props: done, Status: "HTTP/1.1 200 OK"})
	}
	if len(absent) > 0 {
		resp.PropStats = append(resp.PropStats, xml.PropStat{Props: absent, Status: "HTTP/1.1 404 Not Found"})
	}
	writeMultistatus(w, &xml.MultistatusResponse{Responses: []xml.Response{resp}})
}

func (s *Server) handleDelete(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := collectionName(req.URL.Path)
	if _, ok := s.collections[name]; !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	delete(s.collections, name)
	w.WriteHeader(http.StatusNoContent)
}

// apply stores one property element sent with MKCOL or PROPPATCH.
func (c *Collection) apply(elem *etree.Element) error {
	switch {
	case xml.Matches(elem, xml.DAV, xml.TagDisplayName):
		c.DisplayName = elem.Text()
	case xml.Matches(elem, xml.AppleICal, xml.TagCalendarColor):
		c.Color = elem.Text()
	case xml.Matches(elem, xml.DAV, xml.TagResourcetype):
		var rt props.Resourcetype
		rt.Decode(elem)
		c.Calendar = rt.IsCalendar()
	case xml.Matches(elem, xml.CalDAV, xml.TagSupportedCalendarComponentSet):
		var set props.SupportedCalendarComponentSet
		if err := set.Decode(elem); err != nil {
			return err
		}
		for _, comp := range set.Components {
			switch comp {
			case ical.CompEvent, ical.CompToDo, ical.CompJournal:
			default:
				return &unsupportedComponentError{comp}
			}
		}
		c.Components = set.Components
	}
	return nil
}

type unsupportedComponentError struct{ name string }

func (e *unsupportedComponentError) Error() string {
	return "unsupported calendar component " + e.name
}

func bump(c *Collection) {
	n, _ := strconv.Atoi(c.CTag)
	c.CTag = strconv.Itoa(n + 1)
	c.SyncToken = "http://davtest/sync/" + c.CTag
}

func (s *Server) ordered() []*Collection {
	out := make([]*Collection, 0, len(s.collections))
	for _, c := range s.collections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

func collectionName(p string) string {
	return path.Base(strings.TrimSuffix(p, "/"))
}

func writeMultistatus(w http.ResponseWriter, ms *xml.MultistatusResponse) {
	body, err := xml.Bytes(ms.ToXML())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	w.Write(body)
}
