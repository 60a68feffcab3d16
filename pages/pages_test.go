package pages

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/olinlibrary/hackingthelibrary/graph"
	"github.com/olinlibrary/hackingthelibrary/markdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const root = "/site/src/pages"

func addNode(t *testing.T, s *graph.Store, rel, p string) {
	t.Helper()
	require.NoError(t, s.Add(&graph.Node{
		ID:           rel,
		Type:         graph.TypeMarkdown,
		AbsolutePath: root + rel,
		FrontMatter:  markdown.FrontMatter{Path: p},
	}))
}

func TestCreatePages(t *testing.T) {
	s := graph.NewStore()
	const posts = 4
	for i := 0; i < posts; i++ {
		addNode(t, s, fmt.Sprintf("/posts/2020/p%d.md", i), fmt.Sprintf("/posts/2020/p%d", i))
	}
	addNode(t, s, "/about.md", "/about.md")
	addNode(t, s, "/handouts/spring/lab.md", "/handouts/spring/03-04-lab")
	addNode(t, s, "/posts/shallow.md", "/posts/shallow.md")
	require.NoError(t, s.Add(&graph.Node{ID: "logo.png", Type: "File", AbsolutePath: root + "/logo.png"}))

	var reg Registry
	require.NoError(t, NewEmitter(root).CreatePages(context.Background(), s, &reg))

	got := reg.Pages()
	require.Len(t, got, posts+3)
	counts := map[string]int{}
	for _, p := range got {
		counts[p.Component]++
		assert.NotNil(t, p.Context)
		assert.Empty(t, p.Context)
	}
	// The emitter takes the first path segment without a depth check, so
	// /posts/shallow.md uses the post template as well.
	assert.Equal(t, posts+1, counts[TemplatePost])
	assert.Equal(t, 2, counts[TemplatePage])

	assert.Equal(t, "/posts/2020/p0", got[0].Path, "pages follow query order")
	assert.Equal(t, Page{Path: "/about.md", Component: TemplatePage, Context: map[string]any{}}, got[posts])
}

func TestCreatePagesQueryError(t *testing.T) {
	s := graph.NewStore()
	addNode(t, s, "/posts/2020/p.md", "/posts/2020/p")
	bad := errors.New("posts/2020/q.md: bad front matter")
	s.AddError(bad)

	var reg Registry
	err := NewEmitter(root).CreatePages(context.Background(), s, &reg)
	require.ErrorIs(t, err, ErrQuery)
	require.ErrorIs(t, err, bad)
	assert.Equal(t, 0, reg.Len())
}

func TestCreatePagesCanceled(t *testing.T) {
	s := graph.NewStore()
	addNode(t, s, "/about.md", "/about.md")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var reg Registry
	err := NewEmitter(root).CreatePages(ctx, s, &reg)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, reg.Len())
}

type recordingQuerier struct {
	query  graph.Query
	result graph.Result
}

func (q *recordingQuerier) Query(_ context.Context, query graph.Query) *graph.Result {
	q.query = query
	return &q.result
}

func TestCreatePagesQuery(t *testing.T) {
	q := &recordingQuerier{}
	var reg Registry
	require.NoError(t, NewEmitter(root).CreatePages(context.Background(), q, &reg))
	assert.Equal(t, graph.TypeMarkdown, q.query.Type)
	assert.Equal(t, DefaultLimit, q.query.Limit)
	assert.Empty(t, q.query.Sort)

	e := NewEmitter(root)
	e.Limit = 2
	s := graph.NewStore()
	for i := 0; i < 3; i++ {
		addNode(t, s, fmt.Sprintf("/p%d.md", i), fmt.Sprintf("/p%d.md", i))
	}
	limited := &Registry{}
	require.NoError(t, e.CreatePages(context.Background(), s, limited))
	assert.Equal(t, 2, limited.Len())
}

func TestTemplate(t *testing.T) {
	e := NewEmitter(root)
	e.CollectionTemplates["handouts"] = "handout"
	assert.Equal(t, TemplatePost, e.Template("posts"))
	assert.Equal(t, "handout", e.Template("handouts"))
	assert.Equal(t, TemplatePage, e.Template(""))
	assert.Equal(t, TemplatePage, (&Emitter{}).Template("posts"))
}

func TestRegistryReplaces(t *testing.T) {
	var reg Registry
	reg.CreatePage(Page{Path: "/a", Component: TemplatePage})
	reg.CreatePage(Page{Path: "/b", Component: TemplatePage})
	reg.CreatePage(Page{Path: "/a", Component: TemplatePost})
	got := reg.Pages()
	require.Len(t, got, 2)
	assert.Equal(t, TemplatePost, got[0].Component)
	assert.Equal(t, "/b", got[1].Path)
}
