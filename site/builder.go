/*
Package site builds the whole site: it reads the configuration, loads the
Markdown content into a content graph, derives every node's route, emits a
page per node and renders the pages to the output directory.

A site root looks like this:

	site.toml          optional configuration, see Config
	src/pages/         Markdown content; posts/ and handouts/ have dated routes
	src/templates/     optional *.html templates overriding "page" and "post"

Every route is derived before any page is emitted. Any problem recorded
while loading or deriving fails the page emission step and with it the
build, before anything is written. Files under the content root that are
not Markdown are copied to the same place in the output.

The output directory is emptied before each build. A build refuses an
output directory that overlaps the site or that holds files it did not
write.
*/
package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"strings"

	"github.com/olinlibrary/hackingthelibrary/graph"
	"github.com/olinlibrary/hackingthelibrary/pages"
	"github.com/olinlibrary/hackingthelibrary/render"
	"github.com/olinlibrary/hackingthelibrary/route"
	"github.com/olinlibrary/hackingthelibrary/source"
)

// Builder builds a site from a site root.
type Builder struct {
	Config *Config // Defaults are used when nil
	FS     fs.FS   // Site root
	Base   string  // Absolute location of the site root; defaults to "/"
	Out    string  // Output directory on disk; defaults to Config.Output
}

// Report summarizes a successful build.
type Report struct {
	Nodes           int  // Markdown nodes loaded
	Files           int  // Other content files copied
	Pages           int  // Pages written
	CustomTemplates bool // Whether templates came from the site root
}

// ErrOutputOverlap is returned when the output directory would hold the
// site root or the content, or sit inside the content.
var ErrOutputOverlap = errors.New("output directory overlaps the site")

// Build runs the whole build.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	cfg := b.Config
	if cfg == nil {
		cfg = Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.logPlugins()
	out := b.Out
	if out == "" {
		out = cfg.Output
	}
	if err := checkOutput(out, b.Base, cfg.Content.Path); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	// Load the content graph
	store := graph.NewStore()
	src := source.Filesystem{FS: b.FS, Dir: cfg.Content.Path, Base: b.Base}
	count, err := src.Load(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	log.Printf("Loaded %d Markdown files from %q", count, cfg.Content.Name)

	// Derive routes
	deriver := route.Deriver{Root: src.Root()}
	for _, n := range store.Nodes(graph.TypeMarkdown) {
		if err := deriver.OnCreateNode(store, n); err != nil {
			log.Printf("Build: %s", err)
			store.AddError(fmt.Errorf("%s: %w", n.ID, err))
		}
	}

	// Emit pages
	var registry pages.Registry
	if err := cfg.Emitter(src.Root()).CreatePages(ctx, store, &registry); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	// Render
	tpl, custom, err := render.LoadTemplates(b.FS, cfg.Templates.Dir)
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	r := render.Renderer{
		Site:      cfg.Site,
		Templates: tpl,
		Markdown:  cfg.MarkdownOptions(),
		Root:      src.Root(),
		Files:     b.FS,
		Out:       out,
	}
	pgs := registry.Pages()
	if err := r.Render(ctx, store, pgs); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	return &Report{
		Nodes:           count,
		Files:           len(store.Nodes(graph.TypeFile)),
		Pages:           len(pgs),
		CustomTemplates: custom,
	}, nil
}

// checkOutput refuses an output directory that equals or contains the site
// root or the content root, or that lies inside the content root. It needs
// the site root's location on disk, so nothing is checked without base.
func checkOutput(out, base, content string) error {
	if base == "" {
		return nil
	}
	abs, err := filepath.Abs(out)
	if err != nil {
		return err
	}
	root := filepath.Clean(filepath.FromSlash(base))
	contentRoot := filepath.Join(root, filepath.FromSlash(content))
	if contains(abs, root) || contains(abs, contentRoot) || contains(contentRoot, abs) {
		return fmt.Errorf("%w: %q", ErrOutputOverlap, out)
	}
	return nil
}

// contains reports whether p is dir or lies below it.
func contains(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
