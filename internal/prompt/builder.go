// Package prompt builds the chat prompts sent for glossary extraction.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// languageNames maps a language code to its name, per template language.
var languageNames = map[string]map[string]string{
	"en": {"ja": "Japanese", "zh": "Chinese", "ko": "Korean", "en": "English", "ru": "Russian"},
	"zh": {"ja": "日语", "zh": "中文", "ko": "韩语", "en": "英语", "ru": "俄语"},
}

type systemKey struct {
	src, dst string
}

// Builder renders system prompts, parsing each template on first use.
type Builder struct {
	templates map[string]*template.Template
	systems   map[systemKey]string
	schema    string
	mu        sync.Mutex
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		templates: make(map[string]*template.Template),
		systems:   make(map[systemKey]string),
	}
}

// Reset drops all cached templates and prompts.
func (b *Builder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.templates = make(map[string]*template.Template)
	b.systems = make(map[systemKey]string)
	b.schema = ""
}

// templateLanguage picks the instruction language for a target language.
func templateLanguage(dst string) string {
	if dst == "zh" {
		return "zh"
	}
	return "en"
}

func languageName(tmplLang, code string) string {
	if name, ok := languageNames[tmplLang][code]; ok {
		return name
	}
	return code
}

// System returns the system prompt for extracting src terms into dst.
func (b *Builder) System(src, dst string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := systemKey{src: src, dst: dst}
	if s, ok := b.systems[key]; ok {
		return s, nil
	}

	lang := templateLanguage(dst)
	tmpl, ok := b.templates[lang]
	if !ok {
		name := lang + ".tmpl"
		parsed, err := template.New(name).ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return "", fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		tmpl = parsed
		b.templates[lang] = tmpl
	}

	if b.schema == "" {
		schema, err := RecordSchema()
		if err != nil {
			return "", err
		}
		b.schema = schema
	}

	data := struct {
		Source string
		Target string
		Schema string
	}{
		Source: languageName(lang, src),
		Target: languageName(lang, dst),
		Schema: b.schema,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", tmpl.Name(), err)
	}
	s := strings.TrimSpace(buf.String())
	b.systems[key] = s
	return s, nil
}

// Translation returns the system and user turns asking a line-oriented
// translation model to translate lines from src into dst.
func Translation(src, dst string, lines []string) (system, user string) {
	from, to := languageName("zh", src), languageName("zh", dst)
	system = fmt.Sprintf("你是一个轻小说翻译模型，可以流畅通顺地将%s翻译成%s，并联系上下文正确使用人称代词，不擅自添加原文中没有的代词。", from, to)
	user = fmt.Sprintf("将下面的%s文本翻译成%s：\n%s", from, to, User(lines))
	return system, user
}

// User joins cleaned lines into the user turn, one per line.
func User(lines []string) string {
	return strings.Join(lines, "\n")
}
