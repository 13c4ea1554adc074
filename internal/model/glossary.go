package model

// GlossaryCandidate is one raw extraction result before consolidation.
type GlossaryCandidate struct {
	SourceTerm     string `json:"src"`
	TranslatedTerm string `json:"dst"`
	Classification string `json:"type"`
	ItemID         int    `json:"item_id"`
}

// Vote is one alternative value together with how often it was proposed.
type Vote struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// GlossaryEntry is a consolidated glossary row.
type GlossaryEntry struct {
	SourceTerm      string   `json:"src"`
	TranslatedTerm  string   `json:"dst"`
	Classification  string   `json:"info"`
	ContextLines    []string `json:"context"`
	Translations    []Vote   `json:"translations,omitempty"`
	Classifications []Vote   `json:"classifications,omitempty"`
	OccurrenceCount int      `json:"count"`
}
