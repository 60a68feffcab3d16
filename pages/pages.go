// Package pages turns the markdown nodes of the content graph into
// routable pages, choosing a template for each by its collection.
package pages

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/olinlibrary/hackingthelibrary/graph"
	"github.com/olinlibrary/hackingthelibrary/route"
)

// Template identifiers.
const (
	TemplatePage = "page"
	TemplatePost = "post"
)

// DefaultLimit is the largest number of nodes a single emission considers.
const DefaultLimit = 1000

// ErrQuery is returned when the content query reports errors.
var ErrQuery = errors.New("content query failed")

// Page is a routable page.
type Page struct {
	Path      string         // Site path
	Component string         // Template identifier
	Context   map[string]any // Extra data for the template
}

// Querier answers content graph queries.
type Querier interface {
	Query(ctx context.Context, q graph.Query) *graph.Result
}

// Registrar accepts pages.
type Registrar interface {
	CreatePage(p Page)
}

// Emitter registers one page per markdown node.
type Emitter struct {
	Root                string            // Absolute location of the content root
	DefaultTemplate     string            // Template for nodes outside mapped collections
	CollectionTemplates map[string]string // Template per collection
	Limit               int               // Maximum number of nodes to query
}

// NewEmitter returns an Emitter that renders posts with the post template
// and everything else with the page template.
func NewEmitter(root string) *Emitter {
	return &Emitter{
		Root:                root,
		DefaultTemplate:     TemplatePage,
		CollectionTemplates: map[string]string{route.CollectionPosts: TemplatePost},
		Limit:               DefaultLimit,
	}
}

// CreatePages queries the markdown nodes and registers a page for each at
// its front matter path, in query order. If the query reports errors they
// are logged, nothing is registered, and an error wrapping ErrQuery is
// returned.
func (e *Emitter) CreatePages(ctx context.Context, q Querier, r Registrar) error {
	limit := e.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	result := q.Query(ctx, graph.Query{
		Type:  graph.TypeMarkdown,
		Order: graph.Desc,
		Limit: limit,
	})
	if len(result.Errors) > 0 {
		for _, err := range result.Errors {
			log.Printf("createPages: %s", err)
		}
		return fmt.Errorf("createPages: %w: %w", ErrQuery, errors.Join(result.Errors...))
	}
	if result.Total > len(result.Nodes) {
		log.Printf("createPages: query limit %d reached, skipping %d of %d nodes", limit, result.Total-len(result.Nodes), result.Total)
	}
	for _, n := range result.Nodes {
		r.CreatePage(Page{
			Path:      n.FrontMatter.Path,
			Component: e.Template(collectionOf(route.Relative(e.Root, n.AbsolutePath))),
			Context:   map[string]any{},
		})
	}
	return nil
}

// Template returns the template identifier used for a collection.
func (e *Emitter) Template(collection string) string {
	if t, ok := e.CollectionTemplates[collection]; ok && t != "" {
		return t
	}
	if e.DefaultTemplate != "" {
		return e.DefaultTemplate
	}
	return TemplatePage
}

// collectionOf returns the first segment of a relative path. Unlike
// route.Collection it does not require the file to be nested.
func collectionOf(relativePath string) string {
	parts := strings.Split(relativePath, "/")
	if len(parts) > 1 {
		return parts[1]
	}
	return ""
}

// Registry collects registered pages. Registering a path twice replaces
// the earlier page. It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	pages  []Page
	byPath map[string]int
}

// CreatePage registers p.
func (r *Registry) CreatePage(p Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byPath == nil {
		r.byPath = make(map[string]int)
	}
	if i, ok := r.byPath[p.Path]; ok {
		log.Printf("CreatePage: replacing page at %q", p.Path)
		r.pages[i] = p
		return
	}
	r.byPath[p.Path] = len(r.pages)
	r.pages = append(r.pages, p)
}

// Pages returns the registered pages in registration order.
func (r *Registry) Pages() []Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Page(nil), r.pages...)
}

// Len returns the number of registered pages.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}
