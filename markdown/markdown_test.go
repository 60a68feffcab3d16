package markdown

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		in     string
		format Format
		fm     string
		body   string
	}{
		{``, FormatNone, ``, ``},
		{`
		+++
		x = 2
		+++`, FormatTOML, `x = 2`, ``},
		{` ++++++ `, FormatNone, ``, `++++++`},
		{`  +++
		 x = "+++"
		 +++
		 hello`, FormatTOML, `x = "+++"`, `hello`},
		{"---\ntitle: hi\n---\nbody\n\n---\n\nmore", FormatYAML, `title: hi`, "body\n\n---\n\nmore"},
		{"# heading\n---\nnot front matter\n---\n", FormatNone, ``, "# heading\n---\nnot front matter\n---"},
	}
	for i, tt := range tests {
		format, fm, r := Split([]byte(tt.in))
		assert.Equal(t, tt.format, format, "case %d", i)
		assert.Equal(t, tt.fm, string(bytes.TrimSpace(fm)), "case %d", i)
		assert.Equal(t, tt.body, string(bytes.TrimSpace(r)), "case %d", i)
	}
}

func TestParseTOML(t *testing.T) {
	src := "+++\ntitle = \"My Post!\"\ndate = 2020-01-01\ntags = [\"a\", \"b\"]\n+++\nHello *world*"
	fm, body, err := Parse([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, "My Post!", fm.Title)
	assert.True(t, fm.HasDate())
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), fm.Date)
	assert.Equal(t, []string{"a", "b"}, fm.Tags)
	assert.False(t, fm.HasPath())
	assert.Equal(t, "Hello *world*", string(body))
}

func TestParseYAML(t *testing.T) {
	src := "---\npath: /about-us\ntitle: \"Lab 3: Sensors\"\ndate: \"2021-03-04T10:30:00-05:00\"\ntemplate: wide\n---\nText"
	fm, body, err := Parse([]byte(src))
	require.NoError(t, err)
	assert.True(t, fm.HasPath())
	assert.Equal(t, "/about-us", fm.Path)
	assert.Equal(t, "Lab 3: Sensors", fm.Title)
	assert.Equal(t, "wide", fm.Template)
	assert.Equal(t, 2021, fm.Date.Year())
	assert.Equal(t, time.March, fm.Date.Month())
	assert.Equal(t, 4, fm.Date.Day())
	assert.Equal(t, "Text", string(body))
}

func TestParseNoFrontMatter(t *testing.T) {
	fm, body, err := Parse([]byte("# Just markdown"))
	require.NoError(t, err)
	assert.False(t, fm.HasTitle())
	assert.False(t, fm.HasDate())
	assert.Equal(t, "# Just markdown", string(body))
}

func TestParseErrors(t *testing.T) {
	_, _, err := Parse([]byte("+++\ntitle = \n+++\n"))
	require.Error(t, err)

	_, _, err = Parse([]byte("---\ndate: next tuesday\n---\n"))
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2020-01-01", "2020-01-01 00:00:00", "2020-01-01T00:00:00", "2020-01-01T00:00:00Z"} {
		d, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, "2020/01/01", d.Format("2006/01/02"), s)
	}
	d, err := ParseDate(nil)
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate(42)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestRenderDashes(t *testing.T) {
	oldschool := string(Render([]byte("a -- b --- c"), Options{Smartypants: true, Dashes: DashesOldschool}))
	assert.Contains(t, oldschool, "a &ndash; b &mdash; c")

	def := string(Render([]byte("a -- b"), Options{Smartypants: true, Dashes: DashesDefault}))
	assert.Contains(t, def, "a &mdash; b")

	plain := string(Render([]byte("a -- b"), Options{}))
	assert.Contains(t, plain, "a -- b")
}

func TestRenderImages(t *testing.T) {
	opts := Options{Images: true, ImageMaxWidth: 590, LinkImagesToOriginal: true}

	out := string(Render([]byte("![A cat](cat.png)"), opts))
	assert.Contains(t, out, `<span class="md-image" style="display:block;max-width:590px">`)
	assert.Contains(t, out, `<a class="md-image-link" href="cat.png" target="_blank" rel="noopener"><img src="cat.png" alt="A cat"`)
	assert.Contains(t, out, "</a></span>")

	linked := string(Render([]byte("[![A cat](cat.png)](https://example.com)"), opts))
	assert.NotContains(t, linked, "md-image-link")
	assert.Contains(t, linked, `href="https://example.com"`)

	opts.LinkImagesToOriginal = false
	unlinked := string(Render([]byte("![A cat](cat.png)"), opts))
	assert.NotContains(t, unlinked, "md-image-link")
	assert.Contains(t, unlinked, "md-image")
}

func TestRenderResolvesLinks(t *testing.T) {
	opts := Options{Images: true, LinkImagesToOriginal: true, Dir: "/posts/2020"}
	out := string(Render([]byte("![Shelves](shelves.jpg) [next](../2021/next.md) [top](/about.md) [ext](https://example.com/x) [here](#notes)"), opts))
	assert.Contains(t, out, `<a class="md-image-link" href="/posts/2020/shelves.jpg"`)
	assert.Contains(t, out, `<img src="/posts/2020/shelves.jpg" alt="Shelves"`)
	assert.Contains(t, out, `href="/posts/2021/next.md"`)
	assert.Contains(t, out, `href="/about.md"`)
	assert.Contains(t, out, `href="https://example.com/x"`)
	assert.Contains(t, out, `href="#notes"`)

	plain := string(Render([]byte("![Cat](img/cat.png)"), Options{Dir: "/handouts"}))
	assert.Contains(t, plain, `<img src="/handouts/img/cat.png" alt="Cat"`)
	assert.NotContains(t, plain, "md-image")
}

func TestResolveLink(t *testing.T) {
	tests := []struct{ dir, dest, want string }{
		{"/posts/2020", "cat.png", "/posts/2020/cat.png"},
		{"/posts/2020", "./img/cat.png?v=2#top", "/posts/2020/img/cat.png?v=2#top"},
		{"/posts/2020", "../../about.md", "/about.md"},
		{"/posts/2020", "../../../../etc/passwd", "/etc/passwd"},
		{"/posts/2020", "sub/", "/posts/2020/sub/"},
		{"/", "cat.png", "/cat.png"},
		{"/posts", "/abs.png", "/abs.png"},
		{"/posts", "#frag", "#frag"},
		{"/posts", "mailto:library@olin.edu", "mailto:library@olin.edu"},
		{"/posts", "//cdn.example.com/a.png", "//cdn.example.com/a.png"},
		{"/posts", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveLink(tt.dir, tt.dest), tt.dest)
	}
}

func TestValidDashes(t *testing.T) {
	assert.True(t, ValidDashes(""))
	assert.True(t, ValidDashes(DashesOldschool))
	assert.False(t, ValidDashes("inverted"))
}
