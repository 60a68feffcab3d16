package source

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/olinlibrary/hackingthelibrary/graph"
	"github.com/olinlibrary/hackingthelibrary/markdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modTime = time.Date(2022, 2, 2, 12, 0, 0, 0, time.UTC)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"src/pages/about.md": &fstest.MapFile{
			Data:    []byte("---\ntitle: About\n---\nWe are the library."),
			ModTime: modTime,
		},
		"src/pages/posts/2020/hello.md": &fstest.MapFile{
			Data: []byte("+++\ntitle = \"Hello\"\ndate = 2020-05-17\n+++\nFirst post"),
		},
		"src/pages/posts/2020/cat.png":   &fstest.MapFile{Data: []byte{0x89, 'P', 'N', 'G'}},
		"src/pages/.drafts/secret.md":    &fstest.MapFile{Data: []byte("# hidden")},
		"src/pages/.notes.md":            &fstest.MapFile{Data: []byte("# hidden")},
		"src/pages/handouts/x/broken.md": &fstest.MapFile{Data: []byte("+++\ntitle = \n+++\n")},
		"src/templates/page.html":        &fstest.MapFile{Data: []byte(`{{define "page"}}{{end}}`)},
	}
}

func TestLoad(t *testing.T) {
	store := graph.NewStore()
	src := Filesystem{FS: testFS(), Dir: "src/pages", Base: "/site"}
	n, err := src.Load(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "/site/src/pages", src.Root())

	about := store.Node("src/pages/about.md")
	require.NotNil(t, about)
	assert.Equal(t, graph.TypeMarkdown, about.Type)
	assert.Equal(t, "/site/src/pages/about.md", about.AbsolutePath)
	assert.Equal(t, "About", about.FrontMatter.Title)
	assert.Equal(t, "We are the library.", string(about.Body))
	assert.True(t, about.ModTime.Equal(modTime))

	hello := store.Node("src/pages/posts/2020/hello.md")
	require.NotNil(t, hello)
	assert.Equal(t, "2020-05-17", hello.FrontMatter.Date.Format("2006-01-02"))

	png := store.Node("src/pages/posts/2020/cat.png")
	require.NotNil(t, png)
	assert.Equal(t, graph.TypeFile, png.Type)
	assert.Equal(t, "/site/src/pages/posts/2020/cat.png", png.AbsolutePath)
	assert.Len(t, store.Nodes(graph.TypeFile), 1)
	assert.Len(t, store.Nodes(graph.TypeMarkdown), 2)

	assert.Nil(t, store.Node("src/pages/.drafts/secret.md"))
	assert.Nil(t, store.Node("src/pages/.notes.md"))
	assert.Nil(t, store.Node("src/pages/handouts/x/broken.md"))

	errs := store.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "broken.md")
}

func TestLoadDefaultBase(t *testing.T) {
	fsys := fstest.MapFS{"index.md": &fstest.MapFile{Data: []byte("# Home")}}
	store := graph.NewStore()
	src := Filesystem{FS: fsys}
	n, err := src.Load(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "/", src.Root())
	assert.Equal(t, "/index.md", store.Node("index.md").AbsolutePath)
	assert.Equal(t, markdown.FrontMatter{Raw: map[string]any{}}, store.Node("index.md").FrontMatter)
}

func TestLoadMissingDir(t *testing.T) {
	_, err := Filesystem{FS: testFS(), Dir: "content"}.Load(context.Background(), graph.NewStore())
	require.Error(t, err)
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Filesystem{FS: testFS(), Dir: "src/pages"}.Load(ctx, graph.NewStore())
	require.ErrorIs(t, err, context.Canceled)
}
