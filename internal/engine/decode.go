package engine

import (
	"regexp"
	"strings"

	"github.com/Veraticus/the-glossary-must-flow/internal/model"
	"github.com/tidwall/gjson"
)

var (
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	codeFence     = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")
)

// DecodeCandidates pulls src/dst/type records out of a model response. A
// response that is one JSON document (array, record, or indexed object) is
// read whole; otherwise each line is repaired and parsed on its own. Records
// missing a field are dropped.
func DecodeCandidates(response string) []model.GlossaryCandidate {
	response = strings.TrimSpace(codeFence.ReplaceAllString(response, ""))
	if response == "" {
		return nil
	}

	if doc := repair(response); gjson.Valid(doc) {
		return fromDocument(gjson.Parse(doc))
	}

	var out []model.GlossaryCandidate
	for _, line := range strings.Split(response, "\n") {
		line = repair(line)
		if line == "" || !gjson.Valid(line) {
			continue
		}
		out = append(out, fromDocument(gjson.Parse(line))...)
	}
	return out
}

// repair trims a fragment down to its outermost braces and removes trailing
// commas.
func repair(s string) string {
	s = strings.TrimSpace(s)
	start := strings.IndexAny(s, "{[")
	end := strings.LastIndexAny(s, "}]")
	if start < 0 || end < start {
		return ""
	}
	s = s[start : end+1]
	return trailingComma.ReplaceAllString(s, "$1")
}

func fromDocument(doc gjson.Result) []model.GlossaryCandidate {
	if c, ok := record(doc); ok {
		return []model.GlossaryCandidate{c}
	}
	if !doc.IsArray() && !doc.IsObject() {
		return nil
	}

	var out []model.GlossaryCandidate
	doc.ForEach(func(_, value gjson.Result) bool {
		if c, ok := record(value); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}

func record(r gjson.Result) (model.GlossaryCandidate, bool) {
	if !r.IsObject() {
		return model.GlossaryCandidate{}, false
	}
	src, dst, typ := r.Get("src"), r.Get("dst"), r.Get("type")
	if !src.Exists() || !dst.Exists() || !typ.Exists() {
		return model.GlossaryCandidate{}, false
	}
	c := model.GlossaryCandidate{
		SourceTerm:     strings.TrimSpace(src.String()),
		TranslatedTerm: strings.TrimSpace(dst.String()),
		Classification: strings.TrimSpace(typ.String()),
	}
	if c.SourceTerm == "" {
		return model.GlossaryCandidate{}, false
	}
	return c, true
}
