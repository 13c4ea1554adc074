package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/the-glossary-must-flow/internal/model"
	"github.com/Veraticus/the-glossary-must-flow/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestTextSource(t *testing.T) {
	t.Run("directory tree", func(t *testing.T) {
		root := t.TempDir()
		writeTestFile(t, filepath.Join(root, "b", "02.txt"), "三行目\n")
		writeTestFile(t, filepath.Join(root, "a.txt"), "\ufeff一行目\r\n\r\nアリス：二行目\n")
		writeTestFile(t, filepath.Join(root, "notes.md"), "ignored")

		items, err := TextSource{Speakers: true}.ReadItems(context.Background(), root, "ja")
		require.NoError(t, err)
		require.Len(t, items, 3)

		assert.Equal(t, model.TextItem{ID: 0, SourceText: "一行目", FilePath: "a.txt", Status: model.ItemUnprocessed}, items[0])
		assert.Equal(t, "アリス", items[1].FirstCharacterName)
		assert.Equal(t, "二行目", items[1].SourceText)
		assert.Equal(t, 1, items[1].ID)
		assert.Equal(t, "b/02.txt", items[2].FilePath)
		assert.Equal(t, 2, items[2].ID)
	})

	t.Run("single file without speakers", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "script.txt")
		writeTestFile(t, path, "Bob: hello\n")

		items, err := TextSource{}.ReadItems(context.Background(), path, "en")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "script.txt", items[0].FilePath)
		assert.Equal(t, "Bob: hello", items[0].SourceText)
		assert.Empty(t, items[0].FirstCharacterName)
	})

	t.Run("missing input", func(t *testing.T) {
		_, err := TextSource{}.ReadItems(context.Background(), filepath.Join(t.TempDir(), "nope"), "ja")
		require.Error(t, err)
	})
}

func testEntries() []model.GlossaryEntry {
	return []model.GlossaryEntry{
		{SourceTerm: "アリス", TranslatedTerm: "爱丽丝", Classification: "女性名字", OccurrenceCount: 2, ContextLines: []string{"アリスだ"}},
	}
}

func TestSinks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "out", "glossary.json")
		require.NoError(t, SinkFor(path).WriteGlossary(ctx, path, testEntries()))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var decoded []model.GlossaryEntry
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, testEntries(), decoded)
	})

	t.Run("json empty is array", func(t *testing.T) {
		path := filepath.Join(dir, "empty.json")
		require.NoError(t, JSONSink{}.WriteGlossary(ctx, path, nil))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.JSONEq(t, "[]", string(data))
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "glossary.yaml")
		require.IsType(t, YAMLSink{}, SinkFor(path))
		require.NoError(t, SinkFor(path).WriteGlossary(ctx, path, testEntries()))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var rows []map[string]any
		require.NoError(t, yaml.Unmarshal(data, &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "爱丽丝", rows[0]["dst"])
		assert.Equal(t, 2, rows[0]["count"])
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(dir, "glossary.db")
		require.IsType(t, SQLiteSink{}, SinkFor(path))
		require.NoError(t, SinkFor(path).WriteGlossary(ctx, path, testEntries()))

		store, err := storage.OpenMigrated(ctx, path)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		got, err := store.GetGlossary(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "アリス", got[0].SourceTerm)
	})

	t.Run("unknown extension falls back to json", func(t *testing.T) {
		assert.IsType(t, JSONSink{}, SinkFor("glossary.out"))
	})
}
