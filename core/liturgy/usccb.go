package liturgy

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

// findFirst returns the first descendant of n (n included) matching `match`.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool, out []*html.Node) []*html.Node {
	if match(n) {
		return append(out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = findAll(c, match, out)
	}
	return out
}

// textOf returns the visible text of n with whitespace collapsed and line breaks kept.
func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && (n.Data == "br" || n.Data == "p"):
			b.WriteString("\n")
		case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func element(tag, class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && (tag == "" || n.Data == tag) && (class == "" || hasClass(n, class))
	}
}

// parseUSCCB extracts the readings from a USCCB daily readings page. Each reading is a
// "b-verse" block holding a "name" heading, an "address" citation and a "content-body".
func parseUSCCB(r io.Reader) (Readings, bool, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Readings{}, false, err
	}

	var rd Readings
	if h := findFirst(doc, element("h2", "")); h != nil {
		rd.Title = textOf(h)
	}
	for _, block := range findAll(doc, element("", "b-verse"), nil) {
		nameNode := findFirst(block, element("", "name"))
		bodyNode := findFirst(block, element("", "content-body"))
		if nameNode == nil || bodyNode == nil {
			continue
		}
		reading := &Reading{Text: textOf(bodyNode)}
		if addr := findFirst(block, element("", "address")); addr != nil {
			reading.Citation = textOf(addr)
		}

		switch name := strings.ToLower(textOf(nameNode)); {
		case strings.HasPrefix(name, "reading 1"), strings.HasPrefix(name, "reading i") && !strings.HasPrefix(name, "reading ii"):
			rd.FirstReading = reading
		case strings.HasPrefix(name, "reading 2"), strings.HasPrefix(name, "reading ii"):
			rd.SecondReading = reading
		case strings.Contains(name, "psalm"):
			rd.Psalm = reading
		case name == "gospel":
			rd.Gospel = reading
		}
	}
	return rd, rd.FirstReading != nil && rd.Gospel != nil, nil
}
