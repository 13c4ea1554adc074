package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextItemValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    TextItem
		wantErr bool
	}{
		{"valid", TextItem{ID: 1, Status: ItemUnprocessed}, false},
		{"negative id", TextItem{ID: -1, Status: ItemUnprocessed}, true},
		{"unknown status", TextItem{ID: 2, Status: "WHATEVER"}, true},
		{"empty status", TextItem{ID: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestItemStatusCovered(t *testing.T) {
	assert.True(t, ItemProcessed.Covered())
	assert.False(t, ItemDuplicated.Covered())
	assert.True(t, ItemProcessedPreviously.Covered())
	assert.False(t, ItemUnprocessed.Covered())
	assert.False(t, ItemExcluded.Covered())
}

func TestRunStateClone(t *testing.T) {
	s := RunState{Candidates: []GlossaryCandidate{{SourceTerm: "Alice"}}}
	c := s.Clone()
	c.Candidates[0].SourceTerm = "Bob"
	assert.Equal(t, "Alice", s.Candidates[0].SourceTerm)
}

func TestCountByStatus(t *testing.T) {
	items := []TextItem{
		{ID: 0, Status: ItemProcessed},
		{ID: 1, Status: ItemUnprocessed},
		{ID: 2, Status: ItemUnprocessed},
	}
	counts := CountByStatus(items)
	assert.Equal(t, 1, counts[ItemProcessed])
	assert.Equal(t, 2, counts[ItemUnprocessed])
}
