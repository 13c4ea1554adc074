package prompt

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderSystem(t *testing.T) {
	t.Run("english instructions", func(t *testing.T) {
		b := NewBuilder()
		s, err := b.System("ja", "en")
		require.NoError(t, err)

		assert.Contains(t, s, "Japanese to English")
		assert.Contains(t, s, `"src"`)
		assert.NotContains(t, s, "{{")
	})

	t.Run("chinese instructions", func(t *testing.T) {
		b := NewBuilder()
		s, err := b.System("ja", "zh")
		require.NoError(t, err)

		assert.Contains(t, s, "日语到中文")
	})

	t.Run("unknown language code falls back to code", func(t *testing.T) {
		b := NewBuilder()
		s, err := b.System("xx", "en")
		require.NoError(t, err)
		assert.Contains(t, s, "xx to English")
	})

	t.Run("cached and reset", func(t *testing.T) {
		b := NewBuilder()
		first, err := b.System("ja", "en")
		require.NoError(t, err)
		assert.Len(t, b.systems, 1)

		again, err := b.System("ja", "en")
		require.NoError(t, err)
		assert.Equal(t, first, again)

		b.Reset()
		assert.Empty(t, b.systems)
		assert.Empty(t, b.templates)
	})

	t.Run("concurrent first use", func(t *testing.T) {
		b := NewBuilder()
		var wg sync.WaitGroup
		results := make([]string, 16)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				s, err := b.System("ko", "zh")
				assert.NoError(t, err)
				results[i] = s
			}(i)
		}
		wg.Wait()
		for _, r := range results {
			assert.Equal(t, results[0], r)
		}
	})
}

func TestRecordSchema(t *testing.T) {
	s, err := RecordSchema()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &decoded))

	props, ok := decoded["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "src")
	assert.Contains(t, props, "dst")
	assert.Contains(t, props, "type")
	assert.ElementsMatch(t, []any{"src", "dst", "type"}, decoded["required"])
	assert.Equal(t, false, decoded["additionalProperties"])
}

func TestUser(t *testing.T) {
	assert.Equal(t, "a\nb", User([]string{"a", "b"}))
}

func TestTranslation(t *testing.T) {
	system, user := Translation("ja", "zh", []string{"エリカだ", "王都の朝"})

	assert.Contains(t, system, "日语翻译成中文")
	assert.NotContains(t, system, `"src"`)
	assert.Equal(t, "将下面的日语文本翻译成中文：\nエリカだ\n王都の朝", user)
}
