// Package htmlpretty indents rendered HTML for display in snapshot diffs.
// Its output is never persisted.
package htmlpretty

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// IndentWidth is the number of spaces per nesting level.
const IndentWidth = 2

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// rawElements keep their body verbatim.
var rawElements = map[string]bool{
	"pre": true, "script": true, "style": true, "textarea": true,
}

// Format re-renders s one element per line. When a tag has several
// attributes, every attribute after the first goes on its own line aligned
// with the first. Unbalanced markup is printed as far as it goes.
func Format(s string) (string, error) {
	p := &printer{}
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return p.String(), nil
			}
			return p.String(), z.Err()
		case html.StartTagToken:
			tok := z.Token()
			p.tag(tok, false)
			if voidElements[tok.Data] {
				continue
			}
			if rawElements[tok.Data] {
				p.raw(z, tok.Data)
				continue
			}
			p.depth++
		case html.SelfClosingTagToken:
			p.tag(z.Token(), true)
		case html.EndTagToken:
			tok := z.Token()
			if voidElements[tok.Data] {
				continue
			}
			if p.depth > 0 {
				p.depth--
			}
			p.line("</" + tok.Data + ">")
		case html.TextToken:
			text := strings.TrimSpace(string(z.Text()))
			if text == "" {
				continue
			}
			for _, l := range strings.Split(text, "\n") {
				if l = strings.TrimSpace(l); l != "" {
					p.line(l)
				}
			}
		case html.CommentToken:
			p.line("<!--" + string(z.Text()) + "-->")
		case html.DoctypeToken:
			p.line("<!DOCTYPE " + string(z.Text()) + ">")
		}
	}
}

// MustFormat returns the formatted s, or s unchanged when it cannot be
// tokenized.
func MustFormat(s string) string {
	out, err := Format(s)
	if err != nil {
		return s
	}
	return out
}

type printer struct {
	sb    strings.Builder
	depth int
}

func (p *printer) String() string { return p.sb.String() }

func (p *printer) indent(extra int) {
	p.sb.WriteString(strings.Repeat(" ", p.depth*IndentWidth+extra))
}

func (p *printer) line(s string) {
	p.indent(0)
	p.sb.WriteString(s)
	p.sb.WriteByte('\n')
}

func (p *printer) tag(tok html.Token, selfClosing bool) {
	p.indent(0)
	p.sb.WriteByte('<')
	p.sb.WriteString(tok.Data)
	align := len(tok.Data) + 2
	for i, a := range tok.Attr {
		if i == 0 {
			p.sb.WriteByte(' ')
		} else {
			p.sb.WriteByte('\n')
			p.indent(align)
		}
		p.sb.WriteString(attr(a))
	}
	if selfClosing {
		p.sb.WriteString(" />\n")
		return
	}
	p.sb.WriteString(">\n")
}

func attr(a html.Attribute) string {
	name := a.Key
	if a.Namespace != "" {
		name = a.Namespace + ":" + name
	}
	if a.Val == "" {
		return name
	}
	return name + `="` + html.EscapeString(a.Val) + `"`
}

// raw copies the body of a raw element up to its end tag.
func (p *printer) raw(z *html.Tokenizer, name string) {
	var body strings.Builder
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.EndTagToken {
			if tn, _ := z.TagName(); string(tn) == name {
				break
			}
		}
		body.Write(z.Raw())
	}
	if b := strings.Trim(body.String(), "\n"); b != "" {
		p.sb.WriteString(b)
		p.sb.WriteByte('\n')
	}
	p.line("</" + name + ">")
}
