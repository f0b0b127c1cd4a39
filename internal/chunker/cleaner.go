package chunker

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	urlRe        = regexp.MustCompile(`https?://\S+|www\.\S+`)
	emailRe      = regexp.MustCompile(`\S+@\S+`)
)

var quoteReplacer = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
)

// CleanText normalizes chunk text before it is embedded: whitespace runs
// collapse to a single space, URLs and email addresses are masked with
// placeholder tokens, and curly quotes become their ASCII forms.
//
// URLs are masked before emails, so a URL containing an @ is reported as
// [URL], not [EMAIL].
func CleanText(text string) string {
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	text = urlRe.ReplaceAllString(text, "[URL]")
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	return quoteReplacer.Replace(text)
}
