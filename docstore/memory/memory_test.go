package memory

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/crudgen/docstore"
)

func newStore(t *testing.T, colls ...string) *Store {
	t.Helper()
	n := 0
	s := New(WithKeyFunc(func() string {
		n++
		return "k" + strconv.Itoa(n)
	}))
	for _, c := range colls {
		require.NoError(t, s.CreateCollection(context.Background(), c, false))
	}
	return s
}

func TestStore_Collections(t *testing.T) {
	ctx := context.Background()
	s := New()

	ok, err := s.HasCollection(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.CreateCollection(ctx, "user", false))
	require.NoError(t, s.CreateCollection(ctx, "user_order", true))
	require.NoError(t, s.CreateCollection(ctx, "user", true))
	assert.False(t, s.IsEdge("user"))
	assert.True(t, s.IsEdge("user_order"))

	ok, err = s.HasCollection(ctx, "user")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, s.CreateCollection(ctx, "bad-name", false), docstore.ErrInvalidIdentifier)
	require.NoError(t, s.DropCollection(ctx, "user"))
	assert.ErrorIs(t, s.DropCollection(ctx, "user"), docstore.ErrCollectionNotFound)
}

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "product")

	doc, err := s.Insert(ctx, "product", docstore.Document{"name": "Widget", "price": 10})
	require.NoError(t, err)
	assert.Equal(t, "k1", doc.Key())
	assert.Equal(t, "product/k1", doc[docstore.FieldID])
	assert.NotEmpty(t, doc[docstore.FieldRev])
	assert.Equal(t, float64(10), doc["price"])

	explicit, err := s.Insert(ctx, "product", docstore.Document{"_key": "custom", "name": "Gadget"})
	require.NoError(t, err)
	assert.Equal(t, "custom", explicit.Key())
	_, err = s.Insert(ctx, "product", docstore.Document{"_key": "custom"})
	assert.ErrorIs(t, err, docstore.ErrUniqueViolation)

	got, err := s.Get(ctx, "product", "k1")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
	got["name"] = "mutated"
	again, err := s.Get(ctx, "product", "k1")
	require.NoError(t, err)
	assert.Equal(t, "Widget", again["name"])

	replaced, err := s.Replace(ctx, "product", "k1", docstore.Document{"name": "Widget 2", "_key": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "k1", replaced.Key())
	assert.Equal(t, "Widget 2", replaced["name"])
	assert.NotEqual(t, doc[docstore.FieldRev], replaced[docstore.FieldRev])
	assert.NotContains(t, replaced, "price")

	_, err = s.Replace(ctx, "product", "nope", docstore.Document{})
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "product", "k1"))
	_, err = s.Get(ctx, "product", "k1")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "product", "k1"), docstore.ErrNotFound)

	_, err = s.Insert(ctx, "missing", docstore.Document{})
	assert.ErrorIs(t, err, docstore.ErrCollectionNotFound)
	_, err = s.Get(ctx, "missing", "k")
	assert.ErrorIs(t, err, docstore.ErrCollectionNotFound)
}

func TestStore_Find(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "product")
	for i, name := range []string{"Red Widget", "Blue Widget", "Gadget", "red gadget"} {
		_, err := s.Insert(ctx, "product", docstore.Document{"name": name, "rank": i})
		require.NoError(t, err)
	}

	find := func(q docstore.Query) []string {
		t.Helper()
		cur, err := s.Find(ctx, "product", q)
		require.NoError(t, err)
		docs, err := docstore.All(ctx, cur)
		require.NoError(t, err)
		names := make([]string, len(docs))
		for i, d := range docs {
			names[i] = d["name"].(string)
		}
		return names
	}

	assert.Equal(t, []string{"Red Widget", "Blue Widget", "Gadget", "red gadget"}, find(docstore.Query{}))
	assert.Equal(t, []string{"Blue Widget", "Gadget"}, find(docstore.Query{Offset: 1, Limit: 2}))
	assert.Equal(t, []string{"Red Widget", "red gadget"}, find(docstore.Query{
		Where: []docstore.Condition{docstore.ContainsFold("name", "RED")},
	}))
	assert.Equal(t, []string{"Gadget"}, find(docstore.Query{
		Where: []docstore.Condition{docstore.Eq("rank", 2)},
	}))
	assert.Empty(t, find(docstore.Query{Offset: 10}))

	cur, err := s.Find(ctx, "missing", docstore.Query{})
	require.NoError(t, err)
	docs, err := docstore.All(ctx, cur)
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = s.Find(ctx, "product", docstore.Query{Where: []docstore.Condition{docstore.Eq("a-b", 1)}})
	assert.ErrorIs(t, err, docstore.ErrInvalidIdentifier)
}

func TestStore_UniqueIndex(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, "user")

	require.NoError(t, s.EnsureUniqueIndex(ctx, "user", []string{"email"}))
	require.NoError(t, s.EnsureUniqueIndex(ctx, "user", []string{"email"}))

	_, err := s.Insert(ctx, "user", docstore.Document{"email": "a@example.com"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, "user", docstore.Document{"email": "a@example.com"})
	assert.ErrorIs(t, err, docstore.ErrUniqueViolation)

	// Documents without the indexed field never collide.
	_, err = s.Insert(ctx, "user", docstore.Document{"name": "x"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, "user", docstore.Document{"name": "y"})
	require.NoError(t, err)

	b, err := s.Insert(ctx, "user", docstore.Document{"email": "b@example.com"})
	require.NoError(t, err)
	_, err = s.Replace(ctx, "user", b.Key(), docstore.Document{"email": "a@example.com"})
	assert.ErrorIs(t, err, docstore.ErrUniqueViolation)
	_, err = s.Replace(ctx, "user", b.Key(), docstore.Document{"email": "b@example.com", "name": "b"})
	assert.NoError(t, err)

	_, err = s.Insert(ctx, "user", docstore.Document{"phone": "1"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, "user", docstore.Document{"phone": "1"})
	require.NoError(t, err)
	assert.ErrorIs(t, s.EnsureUniqueIndex(ctx, "user", []string{"phone"}), docstore.ErrUniqueViolation)
	assert.ErrorIs(t, s.EnsureUniqueIndex(ctx, "missing", []string{"phone"}), docstore.ErrCollectionNotFound)
}

func TestStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateCollection(ctx, "event", false))

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Insert(ctx, "event", docstore.Document{"n": i})
			assert.NoError(t, err)
			_, err = s.Find(ctx, "event", docstore.Query{Limit: 5})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cur, err := s.Find(ctx, "event", docstore.Query{})
	require.NoError(t, err)
	docs, err := docstore.All(ctx, cur)
	require.NoError(t, err)
	assert.Len(t, docs, 50)
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := &docstore.Collections{
		DocumentCollections: []string{"user"},
		EdgeCollections:     []string{"user_order"},
		GraphEdges: []docstore.GraphEdge{
			{EdgeCollection: "user_order", FromCollections: []string{"user"}, ToCollections: []string{"order"}},
		},
	}
	require.NoError(t, docstore.Bootstrap(ctx, s, c))
	for _, name := range []string{"user", "user_order", "order"} {
		ok, err := s.HasCollection(ctx, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
	assert.True(t, s.IsEdge("user_order"))
	require.NoError(t, docstore.Bootstrap(ctx, s, c))

	require.NoError(t, docstore.Teardown(ctx, s, c))
	ok, err := s.HasCollection(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok)
}
