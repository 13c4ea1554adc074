// Package glossary merges raw extraction candidates into the final glossary.
//
// Consolidation splits compound terms, drops noise, resolves each source term
// by majority vote, and then searches the corpus for context lines. Context
// search visits longer terms first and masks what they matched, so a short
// term never counts lines that belong to a longer term containing it.
package glossary

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/the-glossary-must-flow/internal/model"
	"github.com/Veraticus/the-glossary-must-flow/internal/text"
	"github.com/mattn/go-runewidth"
)

// Defaults for Options.
const (
	DefaultMaxWidth   = 32
	DefaultMaxContext = 10
)

// mask replaces matched runes during context search.
const mask = "\x00"

const splitChars = "・·•、,，/／|｜;"

var blacklist = newSet("other", "others", "unknown", "其它", "其他", "未知", "その他", "不明")

func newSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// Options tunes consolidation.
type Options struct {
	// MaxWidth is the largest display width a source term may have.
	MaxWidth int
	// MaxContext caps the context lines kept per entry.
	MaxContext int
}

func (o Options) withDefaults() Options {
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.MaxContext <= 0 {
		o.MaxContext = DefaultMaxContext
	}
	return o
}

type segment struct {
	src, dst, info string
}

// Consolidate turns candidates into glossary entries using corpus lines for
// context. The result is sorted by descending occurrence count, then by
// source term.
func Consolidate(candidates []model.GlossaryCandidate, corpus []string, opts Options) []model.GlossaryEntry {
	opts = opts.withDefaults()

	var segments []segment
	for _, c := range candidates {
		for _, seg := range splitCandidate(c) {
			if keep(seg, opts.MaxWidth) {
				segments = append(segments, seg)
			}
		}
	}

	entries := vote(segments)
	return searchContext(entries, corpus, opts.MaxContext)
}

// splitCandidate restores placeholders and splits compound terms. Mismatched
// part counts keep the candidate whole.
func splitCandidate(c model.GlossaryCandidate) []segment {
	src := strings.TrimSpace(text.Restore(c.SourceTerm))
	dst := strings.TrimSpace(text.Restore(c.TranslatedTerm))
	info := strings.TrimSpace(c.Classification)

	srcParts := splitTerm(src)
	dstParts := splitTerm(dst)
	if len(srcParts) != len(dstParts) || len(srcParts) == 0 {
		return []segment{{src: src, dst: dst, info: info}}
	}

	out := make([]segment, len(srcParts))
	for i := range srcParts {
		out[i] = segment{src: srcParts[i], dst: dstParts[i], info: info}
	}
	return out
}

func splitTerm(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(splitChars, r)
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func keep(s segment, maxWidth int) bool {
	if s.src == "" || s.dst == "" {
		return false
	}
	if s.src == s.dst && s.info == "" {
		return false
	}
	if _, bad := blacklist[strings.ToLower(s.info)]; bad {
		return false
	}
	return runewidth.StringWidth(s.src) <= maxWidth
}

// tally counts values, remembering first-seen order for tie breaks.
type tally struct {
	counts map[string]int
	order  []string
}

func (t *tally) add(v string) {
	if t.counts == nil {
		t.counts = make(map[string]int)
	}
	if _, seen := t.counts[v]; !seen {
		t.order = append(t.order, v)
	}
	t.counts[v]++
}

// votes returns values by descending count, first-seen first on ties.
func (t *tally) votes() []model.Vote {
	out := make([]model.Vote, 0, len(t.order))
	for _, v := range t.order {
		out = append(out, model.Vote{Value: v, Count: t.counts[v]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func (t *tally) winner() string {
	votes := t.votes()
	if len(votes) == 0 {
		return ""
	}
	return votes[0].Value
}

// vote groups segments by source term and resolves each group.
func vote(segments []segment) []model.GlossaryEntry {
	type group struct {
		dst  tally
		info tally
	}
	groups := make(map[string]*group)
	var order []string

	for _, s := range segments {
		g, ok := groups[s.src]
		if !ok {
			g = &group{}
			groups[s.src] = g
			order = append(order, s.src)
		}
		g.dst.add(s.dst)
		if s.info != "" {
			g.info.add(s.info)
		}
	}

	entries := make([]model.GlossaryEntry, 0, len(order))
	for _, src := range order {
		g := groups[src]
		entries = append(entries, model.GlossaryEntry{
			SourceTerm:      src,
			TranslatedTerm:  g.dst.winner(),
			Classification:  g.info.winner(),
			Translations:    g.dst.votes(),
			Classifications: g.info.votes(),
		})
	}
	return entries
}

// searchContext fills context and occurrence counts, longest terms first.
func searchContext(entries []model.GlossaryEntry, corpus []string, maxContext int) []model.GlossaryEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		li := utf8.RuneCountInString(entries[i].SourceTerm)
		lj := utf8.RuneCountInString(entries[j].SourceTerm)
		if li != lj {
			return li > lj
		}
		return entries[i].SourceTerm < entries[j].SourceTerm
	})

	masked := append([]string(nil), corpus...)
	out := entries[:0]
	for _, e := range entries {
		var matched []int
		for i, line := range masked {
			if strings.Contains(line, e.SourceTerm) {
				matched = append(matched, i)
			}
		}
		if len(matched) == 0 {
			continue
		}

		e.OccurrenceCount = len(matched)
		e.ContextLines = contextLines(corpus, matched, maxContext)

		placeholder := strings.Repeat(mask, utf8.RuneCountInString(e.SourceTerm))
		for _, i := range matched {
			masked[i] = strings.ReplaceAll(masked[i], e.SourceTerm, placeholder)
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurrenceCount != out[j].OccurrenceCount {
			return out[i].OccurrenceCount > out[j].OccurrenceCount
		}
		return out[i].SourceTerm < out[j].SourceTerm
	})
	return out
}

// contextLines returns distinct matched lines, longest first, capped.
func contextLines(corpus []string, matched []int, limit int) []string {
	seen := make(map[string]struct{}, len(matched))
	lines := make([]string, 0, len(matched))
	for _, i := range matched {
		line := strings.TrimSpace(corpus[i])
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		lines = append(lines, line)
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return utf8.RuneCountInString(lines[i]) > utf8.RuneCountInString(lines[j])
	})
	if len(lines) > limit {
		lines = lines[:limit]
	}
	return lines
}
