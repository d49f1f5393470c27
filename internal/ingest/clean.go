// Package ingest normalizes raw source files into documents ready for chunking.
package ingest

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	boilerplateLine = regexp.MustCompile(`(?im)^\s*(navigation|footer|header)\b.*$`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// CleanText drops navigation, footer and header boilerplate lines and then
// collapses whitespace runs into single spaces.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = boilerplateLine.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// looksLikeHTML reports whether s appears to carry markup.
func looksLikeHTML(s string) bool {
	return strings.Contains(s, "<") && strings.Contains(s, ">")
}

// skippedElements never contribute visible text.
var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Title:    true,
	atom.Svg:      true,
	atom.Nav:      true,
	atom.Footer:   true,
}

// blockElements break the text flow; their content is separated by newlines.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Table: true, atom.Section: true, atom.Article: true, atom.Pre: true,
	atom.Blockquote: true, atom.Header: true, atom.Main: true,
}

// ExtractHTML returns the document <title> and its visible text, one line per
// block element. Navigation and footer elements are dropped.
func ExtractHTML(raw string) (title, text string) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", raw
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.Title && title == "" && n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			if skippedElements[n.DataAtom] {
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			sb.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			sb.WriteByte('\n')
		}
	}
	walk(doc)

	return title, sb.String()
}

// textFromBody strips markup when the body looks like HTML and cleans it.
func textFromBody(body string) string {
	if looksLikeHTML(body) {
		_, body = ExtractHTML(body)
	}
	return CleanText(body)
}
