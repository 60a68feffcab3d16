package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrDuplicateNode    = errors.New("duplicate node")
	ErrUnknownNode      = errors.New("node does not belong to this store")
	ErrUnknownSortField = errors.New("unknown sort field")
)

// Order is the direction of a sorted query.
type Order int

const (
	Asc Order = iota
	Desc
)

// Sort fields understood by Query.
const (
	SortFileAbsolutePath = "fileAbsolutePath"
	SortDate             = "frontmatter.date"
	SortTitle            = "frontmatter.title"
	SortPath             = "frontmatter.path"
	SortSlug             = "fields.slug"
)

// Query selects nodes from a Store.
type Query struct {
	Type  string   // Only nodes of this type; empty means all
	Sort  []string // Sort fields, applied in order; empty keeps insertion order
	Order Order    // Direction of the sort
	Limit int      // Maximum number of nodes; zero or less means no limit
}

// Result is the answer to a Query. Nodes may be present even when Errors
// is not empty.
type Result struct {
	Nodes  []*Node
	Total  int // Number of matching nodes before the limit was applied
	Errors []error
}

// Store is the content graph of one build. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	nodes []*Node
	byID  map[string]*Node
	errs  []error
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*Node)}
}

// Add inserts a node. Node IDs must be unique.
func (s *Store) Add(n *Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[n.ID]; ok {
		return fmt.Errorf("Add %q: %w", n.ID, ErrDuplicateNode)
	}
	if n.Fields == nil {
		n.Fields = make(map[string]any)
	}
	s.nodes = append(s.nodes, n)
	s.byID[n.ID] = n
	return nil
}

// Node returns the node with the given ID, or nil.
func (s *Store) Node(id string) *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// Nodes returns the nodes of the given type in insertion order. An empty
// type returns every node.
func (s *Store) Nodes(typ string) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var r []*Node
	for _, n := range s.nodes {
		if typ == "" || n.Type == typ {
			r = append(r, n)
		}
	}
	return r
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// CreateNodeField attaches a named derived field to a node of this store,
// replacing any earlier value.
func (s *Store) CreateNodeField(n *Node, name string, value any) error {
	if name == "" {
		return errors.New("CreateNodeField: empty field name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n == nil || s.byID[n.ID] != n {
		return fmt.Errorf("CreateNodeField %q: %w", name, ErrUnknownNode)
	}
	n.Fields[name] = value
	return nil
}

// AddError records a problem found while building the graph. Recorded
// errors are reported by every later Query.
func (s *Store) AddError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

// Errors returns the recorded errors.
func (s *Store) Errors() []error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]error(nil), s.errs...)
}

// Query returns the nodes selected by q.
func (s *Store) Query(ctx context.Context, q Query) *Result {
	var result Result
	if err := ctx.Err(); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("Query: %w", err))
		return &result
	}
	for _, f := range q.Sort {
		if !knownSortField(f) {
			result.Errors = append(result.Errors, fmt.Errorf("Query: %w: %q", ErrUnknownSortField, f))
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	result.Errors = append(result.Errors, s.errs...)
	for _, n := range s.nodes {
		if q.Type == "" || n.Type == q.Type {
			result.Nodes = append(result.Nodes, n)
		}
	}
	result.Total = len(result.Nodes)
	if len(q.Sort) > 0 && len(result.Errors) == 0 {
		sort.SliceStable(result.Nodes, func(i, j int) bool {
			c := compareNodes(result.Nodes[i], result.Nodes[j], q.Sort)
			if q.Order == Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(result.Nodes) > q.Limit {
		result.Nodes = result.Nodes[:q.Limit]
	}
	return &result
}

func knownSortField(f string) bool {
	switch f {
	case SortFileAbsolutePath, SortDate, SortTitle, SortPath, SortSlug:
		return true
	}
	return false
}

// compareNodes compares a and b by each field in turn.
func compareNodes(a, b *Node, fields []string) int {
	for _, f := range fields {
		var c int
		switch f {
		case SortFileAbsolutePath:
			c = strings.Compare(a.AbsolutePath, b.AbsolutePath)
		case SortDate:
			c = a.FrontMatter.Date.Compare(b.FrontMatter.Date)
		case SortTitle:
			c = strings.Compare(a.FrontMatter.Title, b.FrontMatter.Title)
		case SortPath:
			c = strings.Compare(a.FrontMatter.Path, b.FrontMatter.Path)
		case SortSlug:
			c = strings.Compare(a.StringField("slug"), b.StringField("slug"))
		}
		if c != 0 {
			return c
		}
	}
	return 0
}
