package markdown

import (
	"fmt"
	"html"
	"html/template"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/russross/blackfriday/v2"
)

// Dash styles understood by the smartypants pass.
const (
	DashesDefault   = "default"   // -- becomes an em dash
	DashesOldschool = "oldschool" // -- becomes an en dash, --- an em dash
)

// ValidDashes reports whether s names a supported dash style.
func ValidDashes(s string) bool {
	return s == "" || s == DashesDefault || s == DashesOldschool
}

// Options controls how Markdown is converted to HTML.
type Options struct {
	Smartypants bool   // Typographic quotes, dashes and fractions
	Dashes      string // Dash style used by smartypants

	Images               bool // Wrap images for responsive display
	ImageMaxWidth        int  // Maximum display width of images in pixels
	LinkImagesToOriginal bool // Link each image to its original file

	// Dir is the site directory of the source file, such as /posts/2020.
	// Relative link and image destinations are resolved against it.
	Dir string
}

// Render converts Markdown content into HTML.
func Render(src []byte, opts Options) template.HTML {
	flags := blackfriday.UseXHTML
	if opts.Smartypants {
		flags |= blackfriday.Smartypants | blackfriday.SmartypantsFractions | blackfriday.SmartypantsDashes
		if opts.Dashes == DashesOldschool {
			flags |= blackfriday.SmartypantsLatexDashes
		}
	}
	htmlRenderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{Flags: flags})
	var r blackfriday.Renderer = htmlRenderer
	if opts.Images || opts.Dir != "" {
		r = &siteRenderer{
			HTMLRenderer: htmlRenderer,
			opts:         opts,
		}
	}
	return template.HTML(blackfriday.Run(src,
		blackfriday.WithRenderer(r),
		blackfriday.WithExtensions(blackfriday.CommonExtensions|blackfriday.Footnotes)))
}

// siteRenderer resolves relative destinations and wraps image nodes in a
// width-constrained block and, optionally, a link to the image itself.
type siteRenderer struct {
	*blackfriday.HTMLRenderer

	opts Options
}

// RenderNode renders a single node, decorating links and images.
func (r *siteRenderer) RenderNode(w io.Writer, node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
	if node.Type != blackfriday.Image && node.Type != blackfriday.Link {
		return r.HTMLRenderer.RenderNode(w, node, entering)
	}
	if entering && r.opts.Dir != "" && node.LinkData.NoteID == 0 {
		node.LinkData.Destination = []byte(ResolveLink(r.opts.Dir, string(node.LinkData.Destination)))
	}
	if node.Type == blackfriday.Link || !r.opts.Images {
		return r.HTMLRenderer.RenderNode(w, node, entering)
	}
	link := r.opts.LinkImagesToOriginal && !insideLink(node)
	if entering {
		io.WriteString(w, `<span class="md-image"`)
		if r.opts.ImageMaxWidth > 0 {
			fmt.Fprintf(w, ` style="display:block;max-width:%dpx"`, r.opts.ImageMaxWidth)
		}
		io.WriteString(w, ">")
		if link {
			fmt.Fprintf(w, `<a class="md-image-link" href="%s" target="_blank" rel="noopener">`,
				html.EscapeString(string(node.LinkData.Destination)))
		}
		return r.HTMLRenderer.RenderNode(w, node, entering)
	}
	status := r.HTMLRenderer.RenderNode(w, node, entering)
	if link {
		io.WriteString(w, "</a>")
	}
	io.WriteString(w, "</span>")
	return status
}

// insideLink reports whether node already sits inside a link, where
// another anchor would be invalid.
func insideLink(node *blackfriday.Node) bool {
	for p := node.Parent; p != nil; p = p.Parent {
		if p.Type == blackfriday.Link {
			return true
		}
	}
	return false
}

// ResolveLink makes a relative destination absolute against the site
// directory dir. Absolute paths, fragments, queries and URLs with a scheme
// or host are returned unchanged, as is anything that does not parse.
func ResolveLink(dir, dest string) string {
	if dest == "" || dest[0] == '/' || dest[0] == '#' || dest[0] == '?' {
		return dest
	}
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		return dest
	}
	resolved := path.Join("/", dir, u.Path)
	if strings.HasSuffix(u.Path, "/") && resolved != "/" {
		resolved += "/"
	}
	u.Path = resolved
	return u.String()
}
