package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/the-glossary-must-flow/internal/model"
)

// speakerPrefix matches "Name: line" and "Name：line".
var speakerPrefix = regexp.MustCompile(`^([^\s:：]{1,24})[:：]\s*(\S.*)$`)

// TextSource reads plain .txt files, one item per non-empty line.
type TextSource struct {
	// Speakers enables the "name: text" prefix split.
	Speakers bool
}

// ReadItems reads path, which may be a file or a directory of .txt files.
// Item ids are assigned in file then line order starting at zero.
func (s TextSource) ReadItems(ctx context.Context, path, _ string) ([]model.TextItem, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}

	var files []string
	root := filepath.Dir(path)
	if info.IsDir() {
		root = path
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".txt") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk input directory: %w", err)
		}
		sort.Strings(files)
	} else {
		files = []string{path}
	}

	var items []model.TextItem
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(root, file)
		if err != nil {
			rel = filepath.Base(file)
		}
		items, err = s.readFile(file, filepath.ToSlash(rel), items)
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s TextSource) readFile(path, rel string, items []model.TextItem) ([]model.TextItem, error) {
	f, err := os.Open(path) // #nosec G304 - user-supplied input file
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", rel, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		item := model.TextItem{
			ID:         len(items),
			SourceText: line,
			FilePath:   rel,
			Status:     model.ItemUnprocessed,
		}
		if s.Speakers {
			if m := speakerPrefix.FindStringSubmatch(line); m != nil {
				item.FirstCharacterName = m[1]
				item.SourceText = m[2]
			}
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return items, nil
}
