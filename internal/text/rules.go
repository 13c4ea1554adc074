package text

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReplaceRule rewrites source text before it reaches the model.
type ReplaceRule struct {
	Src   string `yaml:"src"`
	Dst   string `yaml:"dst"`
	Regex bool   `yaml:"regex"`
}

// Rules is the user-editable rules file.
type Rules struct {
	PreReplace []ReplaceRule `yaml:"pre_replace"`
	Exclude    []string      `yaml:"exclude"`
}

// LoadRules reads a YAML rules file. An empty path or a missing file yields empty rules.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return Rules{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Rules{}, nil
		}
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Rules{}, fmt.Errorf("parse rules file: %w", err)
	}
	return r, nil
}

type compiledRule struct {
	re  *regexp.Regexp
	src string
	dst string
}

func compileReplaceRules(rules []ReplaceRule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		if r.Src == "" {
			continue
		}
		cr := compiledRule{src: r.Src, dst: r.Dst}
		if r.Regex {
			re, err := regexp.Compile(r.Src)
			if err != nil {
				return nil, fmt.Errorf("pre_replace rule %d: %w", i, err)
			}
			cr.re = re
		}
		out = append(out, cr)
	}
	return out, nil
}

func (r compiledRule) apply(s string) string {
	if r.re != nil {
		return r.re.ReplaceAllString(s, r.dst)
	}
	return strings.ReplaceAll(s, r.src, r.dst)
}

func compileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("exclude rule %d: %w", i, err)
		}
		out = append(out, re)
	}
	return out, nil
}
