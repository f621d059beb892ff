package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(id string, text ...string) *Document {
	d := NewDocument(id)
	for _, t := range text {
		d.AddText(t)
	}
	return d
}

func directories(t *testing.T) map[string]func() Directory {
	t.Helper()
	return map[string]func() Directory{
		"memory": func() Directory { return NewMemoryDirectory() },
		"sqlite": func() Directory {
			d, err := NewSQLiteDirectory(t.TempDir())
			require.NoError(t, err)
			t.Cleanup(func() { _ = d.Close() })
			return d
		},
	}
}

// TestDirectory_Apply tests the directory contract on every implementation.
func TestDirectory_Apply(t *testing.T) {
	for name, newDir := range directories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			d := newDir()

			gen, err := d.Generation(ctx)
			require.NoError(t, err)
			assert.Zero(t, gen)

			gen, err = d.Apply(ctx, []*Document{doc("a", "alpha"), doc("b", "beta")}, nil)
			require.NoError(t, err)
			assert.Equal(t, int64(1), gen)

			gen, err = d.Apply(ctx, []*Document{doc("a", "again")}, []string{"a", "b"})
			require.NoError(t, err)
			assert.Equal(t, int64(2), gen)

			gen, err = d.Apply(ctx, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, int64(2), gen)

			docs, gen, err := d.Documents(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), gen)
			require.Len(t, docs, 1)
			assert.Equal(t, []string{"again"}, docs["a"].Get(FieldText))

			docs["a"].Add(FieldName, "mutated")
			again, _, err := d.Documents(ctx)
			require.NoError(t, err)
			assert.Empty(t, again["a"].Get(FieldName))
		})
	}
}

// TestDirectory_Lock tests the exclusive write lock.
func TestDirectory_Lock(t *testing.T) {
	for name, newDir := range directories(t) {
		t.Run(name, func(t *testing.T) {
			d := newDir()

			release, err := d.Lock()
			require.NoError(t, err)
			_, err = d.Lock()
			assert.ErrorIs(t, err, ErrLocked)

			release()
			release()
			again, err := d.Lock()
			require.NoError(t, err)
			again()
		})
	}
}

// TestSQLiteDirectory_Reopen tests documents survive closing the database.
func TestSQLiteDirectory_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	d, err := NewSQLiteDirectory(dir)
	require.NoError(t, err)
	_, err = d.Apply(ctx, []*Document{doc("a", "persisted")}, nil)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = NewSQLiteDirectory(dir)
	require.NoError(t, err)
	defer d.Close()
	docs, gen, err := d.Documents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	assert.Equal(t, []string{"persisted"}, docs["a"].Get(FieldText))
}

// TestSQLiteDirectory_Corrupt tests undecodable rows are reported.
func TestSQLiteDirectory_Corrupt(t *testing.T) {
	ctx := context.Background()
	d, err := NewSQLiteDirectory(t.TempDir())
	require.NoError(t, err)
	defer d.Close()
	_, err = d.db.Exec("INSERT INTO index_documents (id, body) VALUES ('x', '{not json')")
	require.NoError(t, err)

	_, _, err = d.Documents(ctx)

	assert.ErrorIs(t, err, ErrCorruptIndex)
	var ie *IndexError
	assert.ErrorAs(t, err, &ie)
}

// TestMemoryDirectory_Closed tests a closed directory rejects calls.
func TestMemoryDirectory_Closed(t *testing.T) {
	d := NewMemoryDirectory()
	require.NoError(t, d.Close())

	_, err := d.Apply(context.Background(), []*Document{doc("a")}, nil)

	assert.ErrorIs(t, err, ErrClosed)
}

// TestTokenize tests term extraction.
func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "wörld", "42"}, Tokenize("Hello, WÖRLD! 42"))
	assert.Empty(t, Tokenize(" -- "))
}
