package markdown

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies the syntax of a front matter block.
type Format int

const (
	FormatNone Format = iota // No front matter present
	FormatTOML               // Delimited by +++
	FormatYAML               // Delimited by ---
)

func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	}
	return "none"
}

// ErrInvalidDate is returned when the date key cannot be read as a date.
var ErrInvalidDate = errors.New("invalid date")

// FrontMatter holds data scraped from a Markdown page. Empty strings and
// the zero time mean the key was absent.
type FrontMatter struct {
	Path        string         // Explicit route of the page
	Title       string         // Title of this page
	Date        time.Time      // Date the article appears
	Template    string         // The name of the template to use
	Description string         // Summary used by templates
	Tags        []string       // Tags to assign to this article
	Raw         map[string]any // Every key found in the block
}

// HasPath reports whether an explicit path was given.
func (fm FrontMatter) HasPath() bool { return fm.Path != "" }

// HasTitle reports whether a title was given.
func (fm FrontMatter) HasTitle() bool { return fm.Title != "" }

// HasDate reports whether a date was given.
func (fm FrontMatter) HasDate() bool { return !fm.Date.IsZero() }

var (
	tomlRegexp = regexp.MustCompile(`(?m)^\s*\+\+\+\s*$`)
	yamlRegexp = regexp.MustCompile(`(?m)^\s*---\s*$`)
)

// dateLayouts are tried in order for dates given as strings.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// split cuts x around the first two lines matched by re.
func split(re *regexp.Regexp, x []byte) (fm, r []byte, ok bool) {
	subs := re.Split(string(x), 3)
	if len(subs) != 3 {
		return nil, x, false
	}
	if s := strings.TrimSpace(subs[0]); len(s) > 0 {
		return nil, x, false
	}
	return []byte(strings.TrimSpace(subs[1])), []byte(strings.TrimSpace(subs[2])), true
}

// Split separates the front matter from the Markdown content and reports
// which syntax the front matter uses.
func Split(x []byte) (Format, []byte, []byte) {
	if fm, r, ok := split(tomlRegexp, x); ok {
		return FormatTOML, fm, r
	}
	if fm, r, ok := split(yamlRegexp, x); ok {
		return FormatYAML, fm, r
	}
	return FormatNone, nil, x
}

// Parse extracts and decodes the front matter of a Markdown file,
// returning it along with the remaining Markdown content.
func Parse(x []byte) (FrontMatter, []byte, error) {
	var (
		fm  FrontMatter
		raw = make(map[string]any)
	)
	format, block, body := Split(x)
	if len(block) > 0 {
		var err error
		switch format {
		case FormatTOML:
			err = toml.Unmarshal(block, &raw)
		case FormatYAML:
			err = yaml.Unmarshal(block, &raw)
		}
		if err != nil {
			return fm, body, fmt.Errorf("Parse %s front matter: %w", format, err)
		}
	}
	fm, err := fromMap(raw)
	if err != nil {
		return fm, body, fmt.Errorf("Parse: %w", err)
	}
	return fm, body, nil
}

// fromMap fills in the recognized keys of a decoded front matter block.
func fromMap(raw map[string]any) (FrontMatter, error) {
	fm := FrontMatter{
		Path:        stringValue(raw["path"]),
		Title:       stringValue(raw["title"]),
		Template:    stringValue(raw["template"]),
		Description: stringValue(raw["description"]),
		Tags:        stringsValue(raw["tags"]),
		Raw:         raw,
	}
	d, err := ParseDate(raw["date"])
	if err != nil {
		return fm, err
	}
	fm.Date = d
	return fm, nil
}

// ParseDate converts a decoded date value into a time. A nil value
// yields the zero time.
func ParseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return d, nil
	case toml.LocalDate:
		return d.AsTime(time.UTC), nil
	case toml.LocalDateTime:
		return d.AsTime(time.UTC), nil
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return time.Time{}, fmt.Errorf("%w: unsupported value %v (%T)", ErrInvalidDate, v, v)
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	return fmt.Sprint(v)
}

func stringsValue(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		r := make([]string, 0, len(l))
		for _, s := range l {
			r = append(r, stringValue(s))
		}
		return r
	case string:
		return []string{l}
	}
	return nil
}
