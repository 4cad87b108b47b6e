package pipeline

import (
	"context"
	"regexp"
	"strings"
)

// markdownSubs is the ordered substitution table applied before synthesis.
// Order matters: fences before inline code, images before links.
var markdownSubs = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile("(?s)```.*?```"), ""},              // fenced code blocks
	{regexp.MustCompile("`([^`]*)`"), "$1"},                // inline code
	{regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`), ""},       // images
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`), "$1"},    // links keep the text
	{regexp.MustCompile(`(?m)^#{1,6}\s*`), ""},             // headers
	{regexp.MustCompile(`\*\*([^*]+)\*\*`), "$1"},          // bold
	{regexp.MustCompile(`__([^_]+)__`), "$1"},              // bold, underscore form
	{regexp.MustCompile(`\*([^*]+)\*`), "$1"},              // italic
	{regexp.MustCompile(`_([^_]+)_`), "$1"},                // italic, underscore form
	{regexp.MustCompile(`(?m)^\s*>\s?`), ""},               // blockquotes
	{regexp.MustCompile(`(?m)^\s*[-*+]\s+`), ""},           // unordered list markers
	{regexp.MustCompile(`(?m)^\s*\d+\.\s+`), ""},           // ordered list markers
	{regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`), ""},    // horizontal rules
}

// markdownChars replaces characters TTS providers mispronounce. Em and en
// dashes become clause pauses; ampersands are spelled out.
var markdownChars = strings.NewReplacer(
	"—", ", ", // em dash
	"–", ", ", // en dash
	"&", "and",
	"*", "",
	"#", "",
	"`", "",
	"~", "",
)

// StripMarkdown removes markdown structure from text. Idempotent; the
// substitution table never produces output a later pass would change.
func StripMarkdown(text string) string {
	for _, sub := range markdownSubs {
		text = sub.re.ReplaceAllString(text, sub.repl)
	}
	return markdownChars.Replace(text)
}

// MarkdownStrip applies StripMarkdown to every text frame.
type MarkdownStrip struct{}

func (MarkdownStrip) Process(ctx context.Context, f Frame, push func(Frame)) {
	if tf, ok := f.(TextFrame); ok {
		push(TextFrame{Text: StripMarkdown(tf.Text), Filler: tf.Filler})
		return
	}
	push(f)
}
