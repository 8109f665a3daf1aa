package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/syssam/crudgen/docstore"
)

func TestFilter(t *testing.T) {
	f, err := Filter(docstore.Query{})
	require.NoError(t, err)
	assert.Equal(t, bson.D{}, f)

	f, err = Filter(docstore.Query{Where: []docstore.Condition{
		docstore.Eq("sku", "A-1"),
		docstore.Eq("note", nil),
		docstore.ContainsFold("name", "a.b*"),
	}})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "sku", Value: "A-1"}},
		bson.D{{Key: "note", Value: nil}},
		bson.D{{Key: "name", Value: bson.D{
			{Key: "$regex", Value: `a\.b\*`},
			{Key: "$options", Value: "i"},
		}}},
	}}}, f)

	_, err = Filter(docstore.Query{Where: []docstore.Condition{docstore.Eq("$where", "1")}})
	assert.ErrorIs(t, err, docstore.ErrInvalidIdentifier)
}

func TestDecode(t *testing.T) {
	raw, err := bson.Marshal(bson.D{
		{Key: "_id", Value: "product/k1"},
		{Key: "price", Value: 9.5},
		{Key: "qty", Value: int32(3)},
		{Key: "tags", Value: bson.A{"a", "b"}},
		{Key: "meta", Value: bson.D{{Key: "ok", Value: true}}},
	})
	require.NoError(t, err)
	doc, err := decode(raw)
	require.NoError(t, err)
	assert.Equal(t, docstore.Document{
		"_id":   "product/k1",
		"price": 9.5,
		"qty":   float64(3),
		"tags":  []any{"a", "b"},
		"meta":  map[string]any{"ok": true},
	}, doc)
}

func TestOpenValidation(t *testing.T) {
	_, err := Open(context.Background(), "", "db")
	assert.Error(t, err)
	_, err = Open(context.Background(), "mongodb://localhost:27017", "")
	assert.Error(t, err)
}

// TestStore_Mongo runs the store against a disposable MongoDB container.
func TestStore_Mongo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, container)

	uri, err := container.PortEndpoint(ctx, "27017/tcp", "mongodb")
	require.NoError(t, err)
	s, err := Open(ctx, uri, "crudgen_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(ctx) })

	require.NoError(t, s.CreateCollection(ctx, "user", false))
	require.NoError(t, s.CreateCollection(ctx, "user", false))
	require.NoError(t, s.CreateCollection(ctx, "user_order", true))
	edge, err := s.IsEdge(ctx, "user_order")
	require.NoError(t, err)
	assert.True(t, edge)
	require.NoError(t, s.EnsureUniqueIndex(ctx, "user", []string{"email"}))

	alice, err := s.Insert(ctx, "user", docstore.Document{"name": "Alice Smith", "email": "alice@example.com", "age": 30})
	require.NoError(t, err)
	assert.Equal(t, docstore.ID("user", alice.Key()), alice[docstore.FieldID])
	_, err = s.Insert(ctx, "user", docstore.Document{"name": "Bob", "email": "bob@example.com", "age": 25})
	require.NoError(t, err)
	_, err = s.Insert(ctx, "user", docstore.Document{"name": "Eve", "email": "alice@example.com"})
	assert.ErrorIs(t, err, docstore.ErrUniqueViolation)
	_, err = s.Insert(ctx, "nobody", docstore.Document{})
	assert.ErrorIs(t, err, docstore.ErrCollectionNotFound)

	got, err := s.Get(ctx, "user", alice.Key())
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", got["name"])

	find := func(q docstore.Query) []docstore.Document {
		t.Helper()
		cur, err := s.Find(ctx, "user", q)
		require.NoError(t, err)
		docs, err := docstore.All(ctx, cur)
		require.NoError(t, err)
		return docs
	}
	assert.Len(t, find(docstore.Query{}), 2)
	assert.Len(t, find(docstore.Query{Where: []docstore.Condition{docstore.ContainsFold("name", "smith")}}), 1)
	assert.Len(t, find(docstore.Query{Where: []docstore.Condition{docstore.Eq("age", 25)}}), 1)
	assert.Len(t, find(docstore.Query{Limit: 1}), 1)

	_, err = s.Replace(ctx, "user", "missing", docstore.Document{})
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	require.NoError(t, s.Delete(ctx, "user", alice.Key()))
	_, err = s.Get(ctx, "user", alice.Key())
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	require.NoError(t, s.DropCollection(ctx, "user"))
	ok, err := s.HasCollection(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok)
}
