package rewrite

import "strings"

// ContentClass is the closed set of response content categories the body
// rewriter recognizes. Anything else is opaque and passes through
// byte-identical.
type ContentClass int

const (
	ContentOpaque ContentClass = iota
	ContentHTML
	ContentCSS
	ContentJavaScript
	ContentJSON
	ContentXML
	ContentPlainText
)

var contentClasses = []struct {
	substr string
	class  ContentClass
}{
	{"text/html", ContentHTML},
	{"application/xhtml+xml", ContentHTML},
	{"text/css", ContentCSS},
	{"text/javascript", ContentJavaScript},
	{"application/javascript", ContentJavaScript},
	{"application/json", ContentJSON},
	{"application/xml", ContentXML},
	{"text/xml", ContentXML},
	{"text/plain", ContentPlainText},
}

// ClassifyContent maps a declared Content-Type header value to a content
// class. Matching is by substring containment, not exact equality, so
// parameters like "; charset=utf-8" do not defeat recognition.
func ClassifyContent(contentType string) ContentClass {
	for _, c := range contentClasses {
		if strings.Contains(contentType, c.substr) {
			return c.class
		}
	}
	return ContentOpaque
}
