package fixture

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FrontMatter holds the page settings that decide whether Hugo renders a
// fixture at all.
type FrontMatter struct {
	Title string `yaml:"title" toml:"title"`
	Draft bool   `yaml:"draft" toml:"draft"`
	Build struct {
		Render string `yaml:"render" toml:"render"`
	} `yaml:"build" toml:"build"`
}

// Rendered reports whether Hugo writes an output page for the fixture.
func (fm FrontMatter) Rendered() bool {
	if fm.Draft {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(fm.Build.Render)) {
	case "never", "false":
		return false
	}
	return true
}

// ParseFrontMatter decodes a leading YAML (---) or TOML (+++) block. Sources
// without front matter yield the zero value.
func ParseFrontMatter(src []byte) (FrontMatter, error) {
	var fm FrontMatter
	body, delim, ok := frontMatterBlock(src)
	if !ok {
		return fm, nil
	}
	switch delim {
	case "---":
		if err := yaml.Unmarshal(body, &fm); err != nil {
			return FrontMatter{}, fmt.Errorf("invalid YAML front matter: %w", err)
		}
	case "+++":
		if _, err := toml.Decode(string(body), &fm); err != nil {
			return FrontMatter{}, fmt.Errorf("invalid TOML front matter: %w", err)
		}
	}
	return fm, nil
}

func frontMatterBlock(src []byte) (body []byte, delim string, ok bool) {
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	for _, d := range []string{"---", "+++"} {
		open := d + "\n"
		if !bytes.HasPrefix(src, []byte(open)) {
			continue
		}
		rest := src[len(open):]
		closing := []byte("\n" + d)
		if bytes.HasPrefix(rest, []byte(d)) {
			return nil, d, true
		}
		idx := bytes.Index(rest, closing)
		if idx < 0 {
			return nil, "", false
		}
		return rest[:idx], d, true
	}
	return nil, "", false
}
