package text

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	htmlRuby    = regexp.MustCompile(`(?is)<ruby>(.*?)(?:<rp>.*?</rp>)?<rt>.*?</rt>(?:<rp>.*?</rp>)?</ruby>`)
	pipeRuby    = regexp.MustCompile(`[|｜]([^|｜《]+)《[^》]*》`)
	bracketRuby = regexp.MustCompile(`(?i)\[ruby text=[^\]]*\]`)
	rbRuby      = regexp.MustCompile(`\\rb\[([^,\]]*),[^\]]*\]`)

	nameCode        = regexp.MustCompile(`\\[Nn]\[(\d+)\]`)
	namePlaceholder = regexp.MustCompile(`\{name_(\d+)\}`)
)

// Cleaner normalizes item text before prompting and restores placeholders afterwards.
type Cleaner struct {
	replace []compiledRule
}

// NewCleaner compiles the pre-replacement rules.
func NewCleaner(rules Rules) (*Cleaner, error) {
	compiled, err := compileReplaceRules(rules.PreReplace)
	if err != nil {
		return nil, err
	}
	return &Cleaner{replace: compiled}, nil
}

// Clean strips ruby markup, applies pre-replacement rules and protects name codes.
// name, when set, is prefixed as a speaker hint.
func (c *Cleaner) Clean(src, name string) string {
	s := StripRuby(src)
	for _, r := range c.replace {
		s = r.apply(s)
	}
	s = Protect(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if name = strings.TrimSpace(name); name != "" {
		s = "【" + Protect(name) + "】" + s
	}
	return s
}

// StripRuby removes furigana annotations and keeps the base text.
func StripRuby(s string) string {
	s = htmlRuby.ReplaceAllString(s, "$1")
	s = pipeRuby.ReplaceAllString(s, "$1")
	s = bracketRuby.ReplaceAllString(s, "")
	s = rbRuby.ReplaceAllString(s, "$1")
	return s
}

// Protect replaces engine name codes such as \N[3] with {name_3} so the model keeps them intact.
func Protect(s string) string {
	return nameCode.ReplaceAllString(s, "{name_$1}")
}

// Restore reverses Protect.
func Restore(s string) string {
	return namePlaceholder.ReplaceAllStringFunc(s, func(m string) string {
		sub := namePlaceholder.FindStringSubmatch(m)
		return fmt.Sprintf(`\N[%s]`, sub[1])
	})
}
