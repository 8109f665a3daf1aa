package crud

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/crudgen/docstore"
)

type gadget struct {
	Key   string            `json:"_key"`
	Name  Nullable[string]  `json:"name,omitzero"`
	Price Nullable[float64] `json:"price,omitzero"`
	Tags  Nullable[[]any]   `json:"tags,omitzero"`
}

func TestNullable(t *testing.T) {
	t.Run("decode keeps null apart from absent", func(t *testing.T) {
		g, err := Decode[gadget](docstore.Document{"_key": "1", "name": nil, "price": 9.5})
		require.NoError(t, err)
		assert.True(t, g.Name.IsNull())
		assert.False(t, g.Name.IsZero())
		price, ok := g.Price.Get()
		assert.True(t, ok)
		assert.Equal(t, 9.5, price)
		assert.True(t, g.Tags.IsZero())
		assert.False(t, g.Tags.IsNull())

		buf, err := json.Marshal(g)
		require.NoError(t, err)
		assert.JSONEq(t, `{"_key": "1", "name": null, "price": 9.5}`, string(buf))
	})

	t.Run("constructors", func(t *testing.T) {
		buf, err := json.Marshal(gadget{Key: "2", Name: Some("lamp"), Tags: Null[[]any]()})
		require.NoError(t, err)
		assert.JSONEq(t, `{"_key": "2", "name": "lamp", "tags": null}`, string(buf))
	})

	t.Run("type mismatch", func(t *testing.T) {
		var n Nullable[float64]
		assert.Error(t, json.Unmarshal([]byte(`"cheap"`), &n))
		assert.False(t, n.Valid)
	})

	t.Run("reuse resets", func(t *testing.T) {
		n := Some(3.0)
		require.NoError(t, json.Unmarshal([]byte(`null`), &n))
		assert.True(t, n.IsNull())
		assert.Zero(t, n.Value)
	})
}
