package docstore

import "context"

// Cursor iterates over the result of a Find call.
//
//	cur, err := store.Find(ctx, "product", q)
//	if err != nil {
//		return err
//	}
//	defer cur.Close(ctx)
//	for cur.Next(ctx) {
//		doc := cur.Document()
//	}
//	return cur.Err()
type Cursor interface {
	// Next advances the cursor and reports whether a document is available.
	Next(ctx context.Context) bool
	// Document returns the current document.
	Document() Document
	// Err returns the error that stopped the iteration, if any.
	Err() error
	// Close releases the cursor.
	Close(ctx context.Context) error
}

// All drains the cursor into a slice and closes it.
func All(ctx context.Context, c Cursor) (docs []Document, err error) {
	defer func() {
		if cerr := c.Close(ctx); err == nil {
			err = cerr
		}
	}()
	docs = []Document{}
	for c.Next(ctx) {
		docs = append(docs, c.Document())
	}
	return docs, c.Err()
}

// SliceCursor returns a Cursor over an in-memory result set.
func SliceCursor(docs []Document) Cursor {
	return &sliceCursor{docs: docs, pos: -1}
}

type sliceCursor struct {
	docs []Document
	pos  int
}

func (c *sliceCursor) Next(ctx context.Context) bool {
	if ctx.Err() != nil || c.pos+1 >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Document() Document {
	if c.pos < 0 || c.pos >= len(c.docs) {
		return nil
	}
	return c.docs[c.pos]
}

func (c *sliceCursor) Err() error { return nil }

func (c *sliceCursor) Close(context.Context) error {
	c.docs = nil
	return nil
}
