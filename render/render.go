/*
Package render writes the pages of a site build to an output directory.

Each page is rendered with the template named by its component, unless its
front matter names another template that exists. Templates receive:

	.Site         site title, subtitle and description
	.Page         path, template and collection of the page
	.FrontMatter  front matter of the page's Markdown file
	.Title        front matter title, or one made from the file name
	.Content      rendered Markdown
	.Collections  every collection's entries, newest first, keyed by collection name

A page at path /a/b is written to a/b/index.html. A page at /404 is also
written to 404.html so that servers can use it for missing files. Relative
links in the Markdown are resolved against the source file's directory, and
every other file under the content root is copied to the same place in the
output, so images keep working. A sitemap.txt listing every page path is
written last.
*/
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/olinlibrary/hackingthelibrary/graph"
	"github.com/olinlibrary/hackingthelibrary/markdown"
	"github.com/olinlibrary/hackingthelibrary/pages"
	"github.com/olinlibrary/hackingthelibrary/route"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrNoContent  = errors.New("no content for page")
	ErrNoTemplate = errors.New("template not found")
)

// SiteMetadata describes the site as a whole.
type SiteMetadata struct {
	Title       string `toml:"title"`
	Subtitle    string `toml:"subtitle"`
	Description string `toml:"description"`
}

// PageInfo has information about the current page.
type PageInfo struct {
	Path       string // Site path
	Template   string // Template used to render the page
	Collection string // Collection of the page's Markdown file
}

// Entry summarizes a page for listings.
type Entry struct {
	Title       string
	Path        string
	Date        time.Time
	Description string
}

// data is what is passed to page templates.
type data struct {
	Site        SiteMetadata
	Page        PageInfo
	FrontMatter markdown.FrontMatter
	Title       string
	Content     template.HTML
	Collections map[string][]Entry
}

// ErrNotOutputDir is returned when the output directory holds files that
// were not written by a previous build.
var ErrNotOutputDir = errors.New("not an output directory")

// MarkerFile marks a directory as written by Render. Only empty or marked
// directories are cleaned.
const MarkerFile = ".site-build"

// Renderer writes pages using a set of templates.
type Renderer struct {
	Site      SiteMetadata
	Templates *template.Template
	Markdown  markdown.Options
	Root      string // Absolute location of the content root
	Files     fs.FS  // Site file system holding the file nodes
	Out       string // Output directory
}

// Render cleans the output directory, writes every page, copies the file
// nodes and writes the sitemap. Markdown nodes supply the content of each
// page, matched on the front matter path; collection listings are ordered
// newest first.
func (r *Renderer) Render(ctx context.Context, q pages.Querier, pgs []pages.Page) error {
	docs := q.Query(ctx, graph.Query{
		Type:  graph.TypeMarkdown,
		Sort:  []string{graph.SortDate, graph.SortPath},
		Order: graph.Desc,
	})
	files := q.Query(ctx, graph.Query{
		Type: graph.TypeFile,
		Sort: []string{graph.SortFileAbsolutePath},
	})
	if errs := append(slices.Clip(docs.Errors), files.Errors...); len(errs) > 0 {
		return fmt.Errorf("Render: %w", errors.Join(errs...))
	}
	if err := r.prepare(); err != nil {
		return err
	}
	byPath := make(map[string]*graph.Node, len(docs.Nodes))
	for _, n := range docs.Nodes {
		if n.FrontMatter.HasPath() {
			byPath[n.FrontMatter.Path] = n
		}
	}
	collections := entries(docs.Nodes)
	for _, p := range pgs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("Render: %w", err)
		}
		n, ok := byPath[p.Path]
		if !ok {
			return fmt.Errorf("Render %q: %w", p.Path, ErrNoContent)
		}
		if err := r.renderPage(p, n, collections); err != nil {
			return err
		}
	}
	for _, n := range files.Nodes {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("Render: %w", err)
		}
		if err := r.copyFile(n); err != nil {
			return err
		}
	}
	return WriteSitemap(r.Out, pgs)
}

// prepare empties the output directory and marks it. A directory that is
// neither empty nor marked is left alone.
func (r *Renderer) prepare() error {
	out := filepath.Clean(r.Out)
	if out == "." || out == string(filepath.Separator) {
		return fmt.Errorf("Render: refusing to clean output directory %q", r.Out)
	}
	existing, err := os.ReadDir(out)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("Render: %w", err)
	case len(existing) > 0:
		if _, err := os.Stat(filepath.Join(out, MarkerFile)); err != nil {
			return fmt.Errorf("Render %q: %w: it is not empty and has no %s file", r.Out, ErrNotOutputDir, MarkerFile)
		}
		if err := os.RemoveAll(out); err != nil {
			return fmt.Errorf("Render: %w", err)
		}
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("Render: %w", err)
	}
	if err := os.WriteFile(filepath.Join(out, MarkerFile), nil, 0o644); err != nil {
		return fmt.Errorf("Render: %w", err)
	}
	return nil
}

// copyFile publishes a file node at its location under the content root.
func (r *Renderer) copyFile(n *graph.Node) error {
	if r.Files == nil {
		return fmt.Errorf("copyFile %s: no site file system", n.ID)
	}
	target := filepath.Join(r.Out, filepath.FromSlash(path.Clean(route.Relative(r.Root, n.AbsolutePath))))
	in, err := r.Files.Open(n.ID)
	if err != nil {
		return fmt.Errorf("copyFile: %w", err)
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("copyFile %s: %w", n.ID, err)
	}
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("copyFile %s: %w", n.ID, err)
	}
	if _, err := io.Copy(f, in); err != nil {
		f.Close()
		return fmt.Errorf("copyFile %s: %w", n.ID, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("copyFile %s: %w", n.ID, err)
	}
	return nil
}

// renderPage executes the page's template and writes the result.
func (r *Renderer) renderPage(p pages.Page, n *graph.Node, collections map[string][]Entry) error {
	name := p.Component
	if t := n.FrontMatter.Template; t != "" && lookup(r.Templates, t) != nil {
		name = t
	}
	tpl := lookup(r.Templates, name)
	if tpl == nil {
		return fmt.Errorf("Render %q: %w: %q", p.Path, ErrNoTemplate, name)
	}
	d := data{
		Site: r.Site,
		Page: PageInfo{
			Path:       p.Path,
			Template:   name,
			Collection: n.StringField(route.FieldCollection),
		},
		FrontMatter: n.FrontMatter,
		Title:       Title(n),
		Content:     markdown.Render(n.Body, r.markdownOptions(n)),
		Collections: collections,
	}
	var out bytes.Buffer
	if err := tpl.Execute(&out, d); err != nil {
		return fmt.Errorf("Render %q: %w", p.Path, err)
	}
	targets := []string{OutputPath(r.Out, p.Path)}
	if isNotFoundPage(p.Path) {
		targets = append(targets, filepath.Join(r.Out, "404.html"))
	}
	for _, target := range targets {
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("Render %q: %w", p.Path, err)
		}
		if err := os.WriteFile(target, out.Bytes(), 0o644); err != nil {
			return fmt.Errorf("Render %q: %w", p.Path, err)
		}
	}
	return nil
}

// markdownOptions resolves relative links of n against its own directory,
// since the page is served from its route instead.
func (r *Renderer) markdownOptions(n *graph.Node) markdown.Options {
	opts := r.Markdown
	opts.Dir = path.Dir(route.Relative(r.Root, n.AbsolutePath))
	return opts
}

// OutputPath returns the file a page path is written to. The path is
// cleaned as if rooted, so it cannot leave out.
func OutputPath(out, p string) string {
	clean := path.Clean("/" + p)
	return filepath.Join(out, filepath.FromSlash(clean), "index.html")
}

func isNotFoundPage(p string) bool {
	return strings.TrimSuffix(strings.Trim(path.Clean("/"+p), "/"), ".md") == "404"
}

// Title returns the front matter title of n, or a title made from the
// file name.
func Title(n *graph.Node) string {
	if n.FrontMatter.HasTitle() {
		return n.FrontMatter.Title
	}
	base := path.Base(n.AbsolutePath)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return cases.Title(language.English).String(base)
}

// entries groups the nodes with a collection by that collection, keeping
// their order.
func entries(nodes []*graph.Node) map[string][]Entry {
	r := make(map[string][]Entry)
	for _, n := range nodes {
		c := n.StringField(route.FieldCollection)
		if c == "" || !n.FrontMatter.HasPath() {
			continue
		}
		r[c] = append(r[c], Entry{
			Title:       Title(n),
			Path:        n.FrontMatter.Path,
			Date:        n.FrontMatter.Date,
			Description: n.FrontMatter.Description,
		})
	}
	return r
}

// WriteSitemap writes sitemap.txt with one page path per line, sorted.
func WriteSitemap(out string, pgs []pages.Page) error {
	paths := make([]string, 0, len(pgs))
	for _, p := range pgs {
		paths = append(paths, p.Path)
	}
	sort.Strings(paths)
	var b strings.Builder
	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(out, "sitemap.txt"), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("WriteSitemap: %w", err)
	}
	return nil
}
