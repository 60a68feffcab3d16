package render

import (
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"path"
	"sort"
	"strings"
	"time"
)

//go:embed default.html
var defaultTemplate string

// LoadTemplates parses the built-in "page" and "post" templates and then
// every *.html file in dir of fsys, which may redefine them or add new
// ones. It reports whether custom templates were found. A missing dir is
// not an error.
func LoadTemplates(fsys fs.FS, dir string) (*template.Template, bool, error) {
	funcMap := template.FuncMap{
		"sortbytime":  sortByTime,
		"sortbytitle": sortByTitle,
		"reverse":     reverse,
		"limit":       limit,
		"filter":      filter,
		"match":       match,
		"prev":        prev,
		"next":        next,
		"join":        path.Join,
		"ext":         path.Ext,
		"trimsuffix":  strings.TrimSuffix,
		"trimprefix":  strings.TrimPrefix,
		"trimspace":   strings.TrimSpace,
		"date":        formatDate,
		"now":         time.Now,
	}
	tpl, err := template.New("site").Funcs(funcMap).Parse(defaultTemplate)
	if err != nil {
		return nil, false, fmt.Errorf("LoadTemplates: %w", err)
	}
	if fsys == nil || dir == "" {
		return tpl, false, nil
	}
	// Check if we are using default templates
	fi, err := fs.Stat(fsys, dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !fi.IsDir()) {
		return tpl, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("LoadTemplates: %w", err)
	}
	pattern := path.Join(dir, "*.html")
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, false, fmt.Errorf("LoadTemplates: %w", err)
	}
	if len(matches) == 0 {
		return tpl, false, nil
	}
	// use custom templates
	tpl, err = tpl.ParseFS(fsys, pattern)
	if err != nil {
		return nil, true, fmt.Errorf("LoadTemplates: %w", err)
	}
	return tpl, true, nil
}

// lookup finds a template by identifier, accepting the file name of a
// custom template as well.
func lookup(tpl *template.Template, name string) *template.Template {
	if t := tpl.Lookup(name); t != nil {
		return t
	}
	return tpl.Lookup(name + ".html")
}

// formatDate formats t, returning "" for the zero time.
func formatDate(layout string, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

// sortByTime returns a copy of e sorted by date, newest first.
func sortByTime(e []Entry) []Entry {
	r := append([]Entry(nil), e...)
	sort.SliceStable(r, func(i, j int) bool { return r[j].Date.Before(r[i].Date) })
	return r
}

// sortByTitle returns a copy of e sorted by title.
func sortByTitle(e []Entry) []Entry {
	r := append([]Entry(nil), e...)
	sort.SliceStable(r, func(i, j int) bool { return r[i].Title < r[j].Title })
	return r
}

// reverse returns a reversed copy of e.
func reverse(e []Entry) []Entry {
	r := make([]Entry, len(e))
	for i := range e {
		r[len(e)-1-i] = e[i]
	}
	return r
}

// limit returns at most n entries.
func limit(n int, e []Entry) []Entry {
	if n >= 0 && len(e) > n {
		return e[:n]
	}
	return e
}

// filter keeps the entries whose path matches one of the patterns.
func filter(e []Entry, pat ...string) []Entry {
	var r []Entry
	for i := range e {
		if match(e[i].Path, pat...) {
			r = append(r, e[i])
		}
	}
	return r
}

// match uses path.Match to test for a match.
func match(s string, pat ...string) bool {
	for i := range pat {
		b, err := path.Match(pat[i], s)
		if err != nil {
			log.Printf("match: %s", err)
		}
		if b {
			return true
		}
	}
	return false
}

// next returns the entry before current, which is the newer one in a
// list sorted by time.
func next(e []Entry, current string) *Entry {
	for i := range e {
		if e[i].Path == current {
			if i > 0 {
				return &e[i-1]
			}
			return nil
		}
	}
	return nil
}

// prev returns the entry after current.
func prev(e []Entry, current string) *Entry {
	for i := range e {
		if e[i].Path == current {
			if i < len(e)-1 {
				return &e[i+1]
			}
			return nil
		}
	}
	return nil
}
