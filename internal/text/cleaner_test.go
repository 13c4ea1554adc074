package text

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripRuby(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"html ruby", "<ruby>魔王<rt>まおう</rt></ruby>が来た", "魔王が来た"},
		{"html ruby with rp", "<ruby>漢字<rp>(</rp><rt>かんじ</rt><rp>)</rp></ruby>", "漢字"},
		{"pipe ruby", "|勇者《ゆうしゃ》アレン", "勇者アレン"},
		{"fullwidth pipe ruby", "｜剣《つるぎ》", "剣"},
		{"bracket ruby", "[ruby text=ゆうしゃ]勇者", "勇者"},
		{"rb code", `\rb[魔王,まおう]の城`, "魔王の城"},
		{"plain", "普通の文", "普通の文"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripRuby(tt.in))
		})
	}
}

func TestProtectRestore(t *testing.T) {
	in := `\N[1]と\n[12]が話す`
	protected := Protect(in)
	assert.Equal(t, "{name_1}と{name_12}が話す", protected)
	assert.Equal(t, `\N[1]と\N[12]が話す`, Restore(protected))
}

func TestCleaner(t *testing.T) {
	c, err := NewCleaner(Rules{PreReplace: []ReplaceRule{
		{Src: "♥", Dst: ""},
		{Src: `\s+`, Dst: " ", Regex: true},
	}})
	require.NoError(t, err)

	t.Run("applies rules and speaker hint", func(t *testing.T) {
		got := c.Clean("  こんにちは♥   \\N[2]  ", "アリス")
		assert.Equal(t, "【アリス】こんにちは {name_2}", got)
	})

	t.Run("empty after cleaning drops hint", func(t *testing.T) {
		assert.Equal(t, "", c.Clean(" ♥ ", "アリス"))
	})

	t.Run("bad regex", func(t *testing.T) {
		_, err := NewCleaner(Rules{PreReplace: []ReplaceRule{{Src: "(", Regex: true}}})
		assert.Error(t, err)
	})
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is empty", func(t *testing.T) {
		r, err := LoadRules(filepath.Join(dir, "nope.yaml"))
		require.NoError(t, err)
		assert.Empty(t, r.PreReplace)
	})

	t.Run("parses yaml", func(t *testing.T) {
		path := filepath.Join(dir, "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
pre_replace:
  - src: "<br>"
    dst: ""
  - src: "\\d+"
    dst: "#"
    regex: true
exclude:
  - "^SE_"
`), 0o600))
		r, err := LoadRules(path)
		require.NoError(t, err)
		require.Len(t, r.PreReplace, 2)
		assert.True(t, r.PreReplace[1].Regex)
		assert.Equal(t, []string{"^SE_"}, r.Exclude)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pre_replace: [unterminated"), 0o600))
		_, err := LoadRules(path)
		assert.Error(t, err)
	})
}

func TestTokenizers(t *testing.T) {
	est := EstimateTokenizer(0)
	assert.Equal(t, 0, est.Count(""))
	assert.Equal(t, 1, est.Count("abcd"))
	assert.Equal(t, 2, est.Count("abcde"))

	bpe := NewBPETokenizer(nil)
	assert.Equal(t, 0, bpe.Count(""))
	assert.Positive(t, bpe.Count("勇者アレンは魔王の城へ向かった。"))
}
