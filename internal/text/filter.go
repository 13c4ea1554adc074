package text

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/Veraticus/the-glossary-must-flow/internal/model"
)

// FilterStats reports how many items each filter removed.
type FilterStats struct {
	RuleExcluded     int
	LanguageExcluded int
	Duplicated       int
}

// Filter marks items that should never reach the model.
type Filter struct {
	exclude  []*regexp.Regexp
	language string
}

// NewFilter builds a filter for the given source language.
func NewFilter(rules Rules, sourceLanguage string) (*Filter, error) {
	ex, err := compileExcludes(rules.Exclude)
	if err != nil {
		return nil, err
	}
	return &Filter{exclude: ex, language: strings.ToLower(sourceLanguage)}, nil
}

// Apply updates the status of Unprocessed items in place. Items in any other state are left alone.
func (f *Filter) Apply(items []model.TextItem) FilterStats {
	var stats FilterStats
	seen := make(map[string]struct{}, len(items))

	for i := range items {
		if items[i].Status == model.ItemProcessed || items[i].Status == model.ItemProcessedPreviously {
			seen[dedupeKey(items[i])] = struct{}{}
		}
	}

	for i := range items {
		item := &items[i]
		if item.Status != model.ItemUnprocessed {
			continue
		}
		src := strings.TrimSpace(StripRuby(item.SourceText))
		switch {
		case f.excludedByRule(src):
			item.Status = model.ItemExcluded
			stats.RuleExcluded++
			continue
		case !HasLanguage(src, f.language):
			item.Status = model.ItemExcluded
			stats.LanguageExcluded++
			continue
		}

		key := dedupeKey(*item)
		if _, dup := seen[key]; dup {
			item.Status = model.ItemDuplicated
			stats.Duplicated++
			continue
		}
		seen[key] = struct{}{}
	}
	return stats
}

func dedupeKey(item model.TextItem) string {
	return item.FirstCharacterName + "\x00" + strings.TrimSpace(item.SourceText)
}

func (f *Filter) excludedByRule(s string) bool {
	if s == "" {
		return true
	}
	if !strings.ContainsFunc(s, func(r rune) bool {
		return unicode.IsLetter(r)
	}) {
		return true
	}
	for _, re := range f.exclude {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// HasLanguage reports whether s contains at least one rune written in the script of lang.
// Languages without a known script always pass.
func HasLanguage(s, lang string) bool {
	var tables []*unicode.RangeTable
	switch lang {
	case "ja":
		tables = []*unicode.RangeTable{unicode.Hiragana, unicode.Katakana, unicode.Han}
	case "zh":
		tables = []*unicode.RangeTable{unicode.Han}
	case "ko":
		tables = []*unicode.RangeTable{unicode.Hangul}
	case "ru":
		tables = []*unicode.RangeTable{unicode.Cyrillic}
	case "en", "de", "fr", "es", "it", "pt", "id", "vi":
		tables = []*unicode.RangeTable{unicode.Latin}
	default:
		return true
	}
	return strings.ContainsFunc(s, func(r rune) bool {
		return unicode.IsOneOf(tables, r)
	})
}
