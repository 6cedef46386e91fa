// Package sanitize cleans upstream rich text before it is embedded into documents.
package sanitize

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"quiz-bot/api/internal/apperr"
)

const (
	scriptStyle = "font-size: 0.85em; line-height: 1;"
	glyphStyle  = "font-size: 18px;"
	glyphScript = "font-size: 14px;"
	glyphClass  = "glyph"

	maxPasses = 4
)

var (
	reNIDPrefix = regexp.MustCompile(`\{['"]nid['"]:\s*['"][0-9]+['"],\s*['"]content['"]:\s*['"]`)
	reClipTail  = regexp.MustCompile(`,\s*['"]clipping_nid['"]:\s*(?:None|null),\s*['"]type['"]:\s*['"]HTML5['"],\s*['"]duration['"]:\s*(?:None|null)\}.*$`)
	reBraces    = regexp.MustCompile(`\{[^}]*\}`)
	reNewlines  = regexp.MustCompile(`(?:\\r\\n|\\n|\\r|\r\n|\n|\r)+`)
	reSpaces    = regexp.MustCompile(`\s+`)
)

// glyphs lists the script runs that get enlarged after a capital P.
var glyphs = map[atom.Atom]string{
	atom.Sub: "s",
	atom.Sup: "0",
}

// HTML returns s cleaned and rewritten. It never fails: on any internal error
// the input comes back unchanged. HTML(HTML(s)) == HTML(s).
func HTML(s string) string {
	out, err := Clean(s)
	if err != nil {
		return s
	}
	return out
}

// Clean is HTML with the failure surfaced.
func Clean(s string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", apperr.Sanitization(fmt.Errorf("panic: %v", r))
		}
	}()
	cur := s
	for i := 0; i < maxPasses; i++ {
		next, err := once(cur)
		if err != nil {
			return "", apperr.Sanitization(err)
		}
		if next == cur {
			return next, nil
		}
		cur = next
	}
	return cur, nil
}

func once(s string) (string, error) {
	s = StripArtifacts(s)
	if s == "" {
		return "", nil
	}
	nodes, err := html.ParseFragment(strings.NewReader(s), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return "", err
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	rewrite(root)

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// StripArtifacts removes serialized-object leftovers, collapses line breaks into
// single spaces and trims surrounding quotes.
func StripArtifacts(s string) string {
	for {
		next := reNIDPrefix.ReplaceAllString(s, "")
		next = reClipTail.ReplaceAllString(next, "")
		next = reBraces.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}
	s = reNewlines.ReplaceAllString(s, " ")
	return strings.Trim(s, "'\" \t")
}

func rewrite(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Img:
			if src, ok := attr(n, "src"); ok && strings.HasPrefix(src, "//") {
				setAttr(n, "src", "https:"+src)
			}
		case atom.Sub, atom.Sup:
			if isGlyph(n.Parent) {
				setAttr(n, "style", glyphScript)
			} else {
				setAttr(n, "style", scriptStyle)
			}
		}
		wrapGlyphs(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewrite(c)
	}
}

// wrapGlyphs turns `P<sub>s</sub>` and `P<sup>0</sup>` among n's children into an enlarged span.
func wrapGlyphs(n *html.Node) {
	if isGlyph(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		want, ok := glyphs[c.DataAtom]
		if !ok || textOf(c) != want {
			continue
		}
		prev := c.PrevSibling
		if prev == nil || prev.Type != html.TextNode || !strings.HasSuffix(prev.Data, "P") {
			continue
		}
		prev.Data = strings.TrimSuffix(prev.Data, "P")
		span := &html.Node{
			Type:     html.ElementNode,
			Data:     "span",
			DataAtom: atom.Span,
			Attr: []html.Attribute{
				{Key: "class", Val: glyphClass},
				{Key: "style", Val: glyphStyle},
			},
		}
		n.InsertBefore(span, c)
		n.RemoveChild(c)
		span.AppendChild(&html.Node{Type: html.TextNode, Data: "P"})
		span.AppendChild(c)
		if prev.Data == "" {
			n.RemoveChild(prev)
		}
		c = span
	}
}

func isGlyph(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || n.DataAtom != atom.Span {
		return false
	}
	cls, _ := attr(n, "class")
	return cls == glyphClass
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

var blockAtoms = map[atom.Atom]bool{
	atom.Br: true, atom.P: true, atom.Div: true, atom.Li: true,
	atom.Tr: true, atom.Td: true, atom.H1: true, atom.H2: true, atom.H3: true,
}

// PlainText drops all markup and collapses whitespace. Entities are decoded.
func PlainText(s string) string {
	nodes, err := html.ParseFragment(strings.NewReader(s), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
			if blockAtoms[n.DataAtom] {
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	out := strings.ReplaceAll(b.String(), "\u00a0", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(out, " "))
}
