package providers

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMinLength is the shortest transcript accepted as a real candidate.
// Shorter payloads are almost always truncated or placeholder text.
const DefaultMinLength = 150

var (
	// LRC timestamp at the start of a line: [mm:ss], [mm:ss.xx] or [mm:ss:xxx]
	lrcTimeRegex = regexp.MustCompile(`^\[(\d{1,3}):(\d{2})(?:[\.:](\d{1,3}))?\]`)

	// LRC header tags. Restricted to known tag names so section markers
	// like "[Chorus: Artist]" survive.
	lrcTagRegex = regexp.MustCompile(`(?i)^\[(ar|ti|al|au|by|offset|length|re|ve|id|hash|sign|qq|total|la|lang|language|#):[^\]]*\]$`)

	blankRunRegex = regexp.MustCompile(`\n{3,}`)
)

// aiTextPhrases are fragments typical of model explanations or refusals
var aiTextPhrases = []string{
	"i'm sorry",
	"i am sorry",
	"as an ai",
	"as a language model",
	"i can't provide",
	"i cannot provide",
	"i can't reproduce",
	"i cannot reproduce",
	"i don't have access",
	"copyrighted",
	"here are the lyrics",
	"i'm unable to",
	"i am unable to",
	"i don't know the lyrics",
	"죄송합니다",
	"저작권",
	"가사를 제공할 수 없",
}

// HasTimestamps reports whether any line of text carries an LRC timestamp
func HasTimestamps(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if lrcTimeRegex.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

// StripTimestamps removes LRC header tags and leading timestamps, leaving plain lyric lines.
// Empty timed lines become blank lines so stanza breaks survive.
func StripTimestamps(text string) string {
	rawLines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(rawLines))

	for _, raw := range rawLines {
		line := strings.TrimSpace(raw)
		if lrcTagRegex.MatchString(line) {
			continue
		}
		for {
			loc := lrcTimeRegex.FindStringIndex(line)
			if loc == nil {
				break
			}
			line = strings.TrimSpace(line[loc[1]:])
		}
		out = append(out, line)
	}

	return CleanLyrics(strings.Join(out, "\n"))
}

// CleanLyrics normalizes line endings, trims trailing whitespace on each line,
// collapses runs of blank lines and trims the whole text
func CleanLyrics(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "&apos;", "'")
	text = strings.ReplaceAll(text, "&#39;", "'")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t ")
	}
	text = strings.Join(lines, "\n")
	text = blankRunRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// LooksLikeAIText reports whether text reads like an assistant explanation or
// refusal rather than song lyrics
func LooksLikeAIText(text string) bool {
	head := strings.ToLower(text)
	if len(head) > 600 {
		head = head[:600]
	}
	for _, phrase := range aiTextPhrases {
		if strings.Contains(head, phrase) {
			return true
		}
	}
	return false
}

// CheckViable returns a typed failure when text cannot be emitted as a candidate
func CheckViable(provider, text string, minLength int) error {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return NewProviderError(provider, ReasonEmpty, "empty lyrics payload", nil)
	}
	if n := utf8.RuneCountInString(trimmed); n <= minLength {
		return NewProviderError(provider, ReasonTooShort, "lyrics too short to be complete", nil)
	}
	return nil
}
