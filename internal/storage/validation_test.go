package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/the-glossary-must-flow/internal/model"
)

func TestValidateEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []model.GlossaryEntry
		wantErr bool
	}{
		{name: "empty list", entries: nil},
		{
			name:    "valid",
			entries: []model.GlossaryEntry{{SourceTerm: "エリカ", OccurrenceCount: 3}, {SourceTerm: "王都"}},
		},
		{name: "blank source", entries: []model.GlossaryEntry{{SourceTerm: "  "}}, wantErr: true},
		{name: "negative count", entries: []model.GlossaryEntry{{SourceTerm: "a", OccurrenceCount: -1}}, wantErr: true},
		{name: "duplicate", entries: []model.GlossaryEntry{{SourceTerm: "a"}, {SourceTerm: "a"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEntries(tt.entries)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateEntries() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("error %v does not wrap ErrInvalidEntry", err)
			}
		})
	}
}

func TestValidateHelpers(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	if err := validateContext(nil); !errors.Is(err, ErrNilContext) {
		t.Errorf("validateContext(nil) = %v, want ErrNilContext", err)
	}
	if err := validateContext(context.Background()); err != nil {
		t.Errorf("validateContext() = %v", err)
	}
	if err := validateString(" ", "path"); !errors.Is(err, ErrEmptyString) {
		t.Errorf("validateString(blank) = %v, want ErrEmptyString", err)
	}
	if err := validateString("x", "path"); err != nil {
		t.Errorf("validateString() = %v", err)
	}
}
