package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/the-glossary-must-flow/internal/model"
	"github.com/Veraticus/the-glossary-must-flow/internal/storage"
	"gopkg.in/yaml.v3"
)

// JSONSink writes the glossary as an indented JSON array.
type JSONSink struct{}

// WriteGlossary implements Sink.
func (JSONSink) WriteGlossary(_ context.Context, path string, entries []model.GlossaryEntry) error {
	if entries == nil {
		entries = []model.GlossaryEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode glossary: %w", err)
	}
	return writeFile(path, data)
}

// yamlEntry is the YAML layout of a glossary row.
type yamlEntry struct {
	Src     string   `yaml:"src"`
	Dst     string   `yaml:"dst"`
	Info    string   `yaml:"info,omitempty"`
	Count   int      `yaml:"count"`
	Context []string `yaml:"context,omitempty"`
}

// YAMLSink writes the glossary as a YAML list.
type YAMLSink struct{}

// WriteGlossary implements Sink.
func (YAMLSink) WriteGlossary(_ context.Context, path string, entries []model.GlossaryEntry) error {
	rows := make([]yamlEntry, len(entries))
	for i, e := range entries {
		rows[i] = yamlEntry{
			Src:     e.SourceTerm,
			Dst:     e.TranslatedTerm,
			Info:    e.Classification,
			Count:   e.OccurrenceCount,
			Context: e.ContextLines,
		}
	}
	data, err := yaml.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode glossary: %w", err)
	}
	return writeFile(path, data)
}

// SQLiteSink stores the glossary in a SQLite database at path.
type SQLiteSink struct{}

// WriteGlossary implements Sink.
func (SQLiteSink) WriteGlossary(ctx context.Context, path string, entries []model.GlossaryEntry) error {
	store, err := storage.OpenMigrated(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return store.SaveGlossary(ctx, entries)
}

// SinkFor picks a sink from the output file extension. Unknown extensions
// get JSON.
func SinkFor(path string) Sink {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return SQLiteSink{}
	case ".yaml", ".yml":
		return YAMLSink{}
	default:
		return JSONSink{}
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write glossary: %w", err)
	}
	return os.Rename(tmp, path)
}
