/*
Package graph holds the content graph of a site build: one node per source
file, each carrying its front matter and a set of derived fields.

The Store is owned by the build and passed by handle to every step that reads
or annotates nodes. Fields are only attached through Store.CreateNodeField,
and the Store answers queries over its nodes with Store.Query.
*/
package graph

import (
	"time"

	"github.com/olinlibrary/hackingthelibrary/markdown"
)

// Internal node types.
const (
	TypeMarkdown = "MarkdownRemark" // Markdown files
	TypeFile     = "File"           // Other files published as they are
)

// Node is one parsed unit of content.
type Node struct {
	ID           string               // Unique within a store; the file's name in the site file system
	Type         string               // Internal type tag
	AbsolutePath string               // Slash separated location of the source file
	FrontMatter  markdown.FrontMatter // Parsed front matter
	Body         []byte               // Markdown content without the front matter
	ModTime      time.Time            // Modification time of the source file
	Fields       map[string]any       // Derived fields
}

// Field returns the named derived field.
func (n *Node) Field(name string) (any, bool) {
	v, ok := n.Fields[name]
	return v, ok
}

// StringField returns the named derived field as a string, or "" if it is
// missing or not a string.
func (n *Node) StringField(name string) string {
	s, _ := n.Fields[name].(string)
	return s
}
