package xml

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

// normalizeXML removes whitespace differences and the XML declaration for
// test comparisons.
func normalizeXML(s string) string {
	s = regexp.MustCompile(`<\?xml[^>]*\?>`).ReplaceAllString(s, "")
	s = regexp.MustCompile(`>\s+<`).ReplaceAllString(s, "><")
	s = regexp.MustCompile(`\s+/>`).ReplaceAllString(s, "/>")
	return strings.TrimSpace(s)
}

// elementToString converts an etree.Element to a string for testing
func elementToString(elem *etree.Element) string {
	doc := etree.NewDocument()
	doc.AddChild(elem.Copy())
	s, _ := doc.WriteToString()
	return strings.TrimSpace(s)
}
