package glossary

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Veraticus/the-glossary-must-flow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cand(src, dst, info string) model.GlossaryCandidate {
	return model.GlossaryCandidate{SourceTerm: src, TranslatedTerm: dst, Classification: info}
}

func TestConsolidateMajorityVote(t *testing.T) {
	candidates := []model.GlossaryCandidate{
		cand("Alice", "爱丽丝", "姓名"),
		cand("Alice", "爱丽丝", "姓名"),
		cand("Alice", "艾丽斯", "姓名"),
	}
	corpus := []string{"Alice went home", "Bob stayed"}

	got := Consolidate(candidates, corpus, Options{})

	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].SourceTerm)
	assert.Equal(t, "爱丽丝", got[0].TranslatedTerm)
	assert.Equal(t, "姓名", got[0].Classification)
	assert.Equal(t, []model.Vote{{Value: "爱丽丝", Count: 2}, {Value: "艾丽斯", Count: 1}}, got[0].Translations)
	assert.Equal(t, []model.Vote{{Value: "姓名", Count: 3}}, got[0].Classifications)
	assert.Equal(t, 1, got[0].OccurrenceCount)
}

func TestConsolidateTieBreaksFirstSeen(t *testing.T) {
	got := Consolidate([]model.GlossaryCandidate{
		cand("Alice", "艾丽斯", "女性"),
		cand("Alice", "爱丽丝", "姓名"),
	}, []string{"Alice"}, Options{})

	require.Len(t, got, 1)
	assert.Equal(t, "艾丽斯", got[0].TranslatedTerm)
	assert.Equal(t, "女性", got[0].Classification)
}

func TestConsolidateContextMasking(t *testing.T) {
	candidates := []model.GlossaryCandidate{
		cand("A", "甲", "term"),
		cand("AB", "甲乙", "term"),
	}
	corpus := []string{"AB test", "A test"}

	got := Consolidate(candidates, corpus, Options{})
	require.Len(t, got, 2)

	byTerm := map[string]model.GlossaryEntry{}
	for _, e := range got {
		byTerm[e.SourceTerm] = e
	}
	assert.Equal(t, []string{"AB test"}, byTerm["AB"].ContextLines)
	assert.Equal(t, 1, byTerm["AB"].OccurrenceCount)
	assert.Equal(t, []string{"A test"}, byTerm["A"].ContextLines)
	assert.Equal(t, 1, byTerm["A"].OccurrenceCount)
	assert.NotContains(t, byTerm["A"].ContextLines, "AB test")
}

func TestConsolidateIdempotent(t *testing.T) {
	candidates := []model.GlossaryCandidate{
		cand("アリス", "爱丽丝", "女性名字"),
		cand("王都ルミナス", "王都卢米纳斯", "地名"),
		cand("ルミナス", "卢米纳斯", "地名"),
		cand("ボブ", "鲍勃", "男性名字"),
		cand("アリス", "爱丽丝", "女性名字"),
	}
	corpus := []string{
		"アリスは王都ルミナスへ向かった。",
		"ルミナスの門でボブが待っていた。",
		"アリス「ボブ！」",
		"王都ルミナスは遠い。",
	}

	first := Consolidate(candidates, corpus, Options{})
	second := Consolidate(candidates, corpus, Options{})
	assert.Equal(t, first, second)

	reversed := make([]model.GlossaryCandidate, len(candidates))
	for i, c := range candidates {
		reversed[len(candidates)-1-i] = c
	}
	assert.Equal(t, first, Consolidate(reversed, corpus, Options{}))

	byTerm := map[string]model.GlossaryEntry{}
	for _, e := range first {
		byTerm[e.SourceTerm] = e
	}
	assert.Equal(t, 2, byTerm["王都ルミナス"].OccurrenceCount)
	// Only the gate line mentions ルミナス outside the longer term.
	assert.Equal(t, 1, byTerm["ルミナス"].OccurrenceCount)
	assert.Equal(t, 2, byTerm["アリス"].OccurrenceCount)

	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].OccurrenceCount, first[i].OccurrenceCount)
	}
}

func TestConsolidateSplitting(t *testing.T) {
	t.Run("matching parts split", func(t *testing.T) {
		got := Consolidate([]model.GlossaryCandidate{
			cand("アリス・ボブ", "爱丽丝・鲍勃", "名字"),
		}, []string{"アリスとボブ"}, Options{})

		terms := map[string]string{}
		for _, e := range got {
			terms[e.SourceTerm] = e.TranslatedTerm
		}
		assert.Equal(t, map[string]string{"アリス": "爱丽丝", "ボブ": "鲍勃"}, terms)
	})

	t.Run("mismatched parts stay whole", func(t *testing.T) {
		got := Consolidate([]model.GlossaryCandidate{
			cand("アリス、ボブ", "爱丽丝和鲍勃", "名字"),
		}, []string{"アリス、ボブ"}, Options{})

		require.Len(t, got, 1)
		assert.Equal(t, "アリス、ボブ", got[0].SourceTerm)
	})
}

func TestConsolidateFilters(t *testing.T) {
	long := strings.Repeat("x", DefaultMaxWidth+1)
	wide := strings.Repeat("魔", DefaultMaxWidth/2+1)
	candidates := []model.GlossaryCandidate{
		cand("", "nothing", "名字"),
		cand("空", "", "名字"),
		cand("Same", "Same", ""),
		cand("Thing", "东西", "Other"),
		cand("Stuff", "东西", "その他"),
		cand(long, "long", "名字"),
		cand(wide, "wide", "名字"),
		cand("Kept", "保留", "名字"),
		cand("Same2", "Same2", "名字"),
	}
	corpus := []string{"nothing 空 Same Thing Stuff " + long + " " + wide + " Kept Same2"}

	got := Consolidate(candidates, corpus, Options{})

	var terms []string
	for _, e := range got {
		terms = append(terms, e.SourceTerm)
	}
	assert.ElementsMatch(t, []string{"Kept", "Same2"}, terms)
}

func TestConsolidateRestoresPlaceholders(t *testing.T) {
	got := Consolidate([]model.GlossaryCandidate{
		cand("{name_3}", "主角", "名字"),
	}, []string{`\N[3]が来た`}, Options{})

	require.Len(t, got, 1)
	assert.Equal(t, `\N[3]`, got[0].SourceTerm)
}

func TestConsolidateContextLines(t *testing.T) {
	var corpus []string
	for i := 0; i < 15; i++ {
		corpus = append(corpus, fmt.Sprintf("アリス%s", strings.Repeat("。", i)))
	}
	corpus = append(corpus, "アリス", "関係ない")

	got := Consolidate([]model.GlossaryCandidate{cand("アリス", "爱丽丝", "名字")}, corpus, Options{MaxContext: 3})

	require.Len(t, got, 1)
	assert.Equal(t, 16, got[0].OccurrenceCount)
	require.Len(t, got[0].ContextLines, 3)
	assert.Equal(t, "アリス"+strings.Repeat("。", 14), got[0].ContextLines[0])
	assert.Equal(t, "アリス"+strings.Repeat("。", 12), got[0].ContextLines[2])
}

func TestConsolidateDropsUnmatched(t *testing.T) {
	got := Consolidate([]model.GlossaryCandidate{cand("幻", "幻", "名字")}, []string{"何もない"}, Options{})
	assert.Empty(t, got)
}

func TestConsolidateRanking(t *testing.T) {
	candidates := []model.GlossaryCandidate{
		cand("Zora", "佐拉", "女性名字"),
		cand("Amy", "艾米", "女性名字"),
		cand("Kit", "基特", "男性名字"),
	}
	corpus := []string{"Zora smiled", "Amy waved", "Kit ran", "Kit hid"}

	got := Consolidate(candidates, corpus, Options{})

	terms := make([]string, len(got))
	for i, e := range got {
		terms[i] = e.SourceTerm
	}
	assert.Equal(t, []string{"Kit", "Amy", "Zora"}, terms)
}
