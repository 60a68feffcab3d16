// Package source discovers Markdown files and adds them to the content graph.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"strings"

	"github.com/olinlibrary/hackingthelibrary/graph"
	"github.com/olinlibrary/hackingthelibrary/markdown"
)

// Filesystem reads Markdown files below Dir of FS.
type Filesystem struct {
	FS   fs.FS  // Site file system
	Dir  string // Content root within FS
	Base string // Absolute location of FS; defaults to "/"
}

// Root returns the absolute location of the content root.
func (s Filesystem) Root() string {
	return s.absolute(s.Dir)
}

func (s Filesystem) absolute(name string) string {
	base := s.Base
	if base == "" {
		base = "/"
	}
	return path.Join(base, name)
}

// Load walks the content root and adds a markdown node for every Markdown
// file and a file node for every other file. Markdown files whose front
// matter cannot be read are not added; the problem is recorded in the store
// instead. Load returns the number of markdown nodes added.
func (s Filesystem) Load(ctx context.Context, store *graph.Store) (int, error) {
	dir := path.Clean(s.Dir)
	count := 0
	err := fs.WalkDir(s.FS, dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if name != dir && isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if path.Ext(name) != ".md" {
			return store.Add(s.fileNode(name, d))
		}
		n, err := s.readNode(name, d)
		if err != nil {
			log.Printf("Load: %s", err)
			store.AddError(err)
			return nil
		}
		if err := store.Add(n); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("Load %s: %w", dir, err)
	}
	return count, nil
}

// readNode parses a single Markdown file into a node.
func (s Filesystem) readNode(name string, d fs.DirEntry) (*graph.Node, error) {
	b, err := fs.ReadFile(s.FS, name)
	if err != nil {
		return nil, fmt.Errorf("readNode %s: %w", name, err)
	}
	fm, body, err := markdown.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("readNode %s: %w", name, err)
	}
	n := &graph.Node{
		ID:           name,
		Type:         graph.TypeMarkdown,
		AbsolutePath: s.absolute(name),
		FrontMatter:  fm,
		Body:         body,
	}
	fi, err := d.Info()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("readNode %s: %w", name, err)
	}
	if fi != nil {
		n.ModTime = fi.ModTime()
	}
	return n, nil
}

// fileNode describes a file that is published without processing.
func (s Filesystem) fileNode(name string, d fs.DirEntry) *graph.Node {
	n := &graph.Node{
		ID:           name,
		Type:         graph.TypeFile,
		AbsolutePath: s.absolute(name),
	}
	if fi, err := d.Info(); err == nil {
		n.ModTime = fi.ModTime()
	}
	return n
}

// isHidden reports whether a file or folder name starts with a period.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
