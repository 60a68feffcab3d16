// Package route derives the site path of each content node from its
// location under the content root and its front matter.
package route

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/olinlibrary/hackingthelibrary/graph"
	"github.com/olinlibrary/hackingthelibrary/markdown"
)

// Collections with their own slug formats.
const (
	CollectionPosts    = "posts"
	CollectionHandouts = "handouts"
)

// Names of the fields attached to markdown nodes.
const (
	FieldCollection = "collection"
	FieldSlug       = "slug"
)

// ErrMissingDate is returned for dated collections whose entries have no date.
var ErrMissingDate = errors.New("missing date")

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Slugify lowercases s and turns every run of characters other than ASCII
// letters and digits into a single hyphen. Leading and trailing hyphens
// are dropped.
func Slugify(s string) string {
	return strings.Trim(strings.ToLower(nonAlphanumeric.ReplaceAllString(s, "-")), "-")
}

// ReplaceLastComponent replaces the final segment of a slash separated path
// with slug. A trailing slash is kept and the segment before it replaced.
func ReplaceLastComponent(p, slug string) string {
	components := strings.Split(p, "/")
	i := len(components) - 1
	if components[i] == "" && i > 0 {
		i--
	}
	components[i] = slug
	return strings.Join(components, "/")
}

// Relative strips root from an absolute location. The result keeps its
// leading slash.
func Relative(root, abs string) string {
	rel := strings.TrimPrefix(abs, strings.TrimSuffix(root, "/"))
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return rel
}

// Collection returns the collection of a path relative to the content
// root, or "" when the file is not nested deeply enough to belong to one.
// Depth is counted on the file's directory route, where a/b.md is a/b/ and
// a/index.md is a/, so /handouts/foo.md is a handout and /about.md and
// /handouts/index.md are in no collection.
func Collection(relativePath string) string {
	parts := strings.Split(dirRoute(relativePath), "/")
	if len(parts) > 3 {
		return parts[1]
	}
	return ""
}

// dirRoute turns a file path into the directory-style route it is served
// under: the extension is dropped, index files map to their folder, and
// the result ends in a slash.
func dirRoute(relativePath string) string {
	dir, file := path.Split(relativePath)
	name := strings.TrimSuffix(file, path.Ext(file))
	if name == "" || name == "index" {
		return dir
	}
	return path.Join(dir, name) + "/"
}

// Derivation is the outcome of deriving a node's route.
type Derivation struct {
	Collection string // "" when the node is in no collection
	Path       string // Site path of the node
}

// Derive computes the collection and site path for a file at relativePath.
// An explicit path in the front matter always wins. Otherwise posts become
// .../YYYY/MM/DD/title, handouts .../MM-DD-title, and anything else keeps
// its relative path. The collection is returned even when err is not nil.
func Derive(relativePath string, fm markdown.FrontMatter) (Derivation, error) {
	d := Derivation{Collection: Collection(relativePath)}
	if fm.HasPath() {
		d.Path = fm.Path
		return d, nil
	}
	switch d.Collection {
	case CollectionPosts:
		if !fm.HasDate() {
			return d, fmt.Errorf("Derive %s: %w", relativePath, ErrMissingDate)
		}
		d.Path = ReplaceLastComponent(relativePath, fm.Date.Format("2006/01/02")+"/"+Slugify(fm.Title))
	case CollectionHandouts:
		if !fm.HasDate() {
			return d, fmt.Errorf("Derive %s: %w", relativePath, ErrMissingDate)
		}
		d.Path = ReplaceLastComponent(relativePath, fm.Date.Format("01-02")+"-"+Slugify(fm.Title))
	default:
		d.Path = relativePath
	}
	return d, nil
}

// FieldCreator attaches derived fields to nodes.
type FieldCreator interface {
	CreateNodeField(n *graph.Node, name string, value any) error
}

// Deriver annotates markdown nodes found under Root.
type Deriver struct {
	Root string // Absolute location of the content root
}

// OnCreateNode attaches the collection and slug fields to a markdown node
// and records the resulting path in its front matter. Other node types are
// left alone. The collection field is set even when no path can be derived.
func (d Deriver) OnCreateNode(fc FieldCreator, n *graph.Node) error {
	if n.Type != graph.TypeMarkdown {
		return nil
	}
	der, derr := Derive(Relative(d.Root, n.AbsolutePath), n.FrontMatter)
	var collection any
	if der.Collection != "" {
		collection = der.Collection
	}
	if err := fc.CreateNodeField(n, FieldCollection, collection); err != nil {
		return fmt.Errorf("OnCreateNode: %w", err)
	}
	if derr != nil {
		return fmt.Errorf("OnCreateNode: %w", derr)
	}
	n.FrontMatter.Path = der.Path
	if err := fc.CreateNodeField(n, FieldSlug, der.Path); err != nil {
		return fmt.Errorf("OnCreateNode: %w", err)
	}
	return nil
}
