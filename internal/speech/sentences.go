// Package speech prepares chapter markup for text-to-speech playback. It
// splits text into sentences and locates where the story proper begins.
package speech

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuanying/epubreader/internal/markup"
)

const blockSelector = "p, div, h1, h2, h3, h4, h5, h6, li, blockquote, td, th"

// minSentenceLength is the shortest fragment, in runes, kept as a sentence.
const minSentenceLength = 4

// inlineTags contribute their text to the enclosing block.
var inlineTags = map[string]bool{
	"a": true, "b": true, "i": true, "em": true, "strong": true, "span": true,
	"u": true, "small": true, "sup": true, "sub": true, "mark": true,
}

// abbreviations never end a sentence when followed by a period.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "sr": true, "jr": true, "vs": true,
	"inc": true, "ltd": true, "corp": true, "co": true, "etc": true, "eg": true, "ie": true,
	"st": true, "ave": true, "blvd": true, "rd": true, "apt": true, "no": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true, "jul": true,
	"aug": true, "sep": true, "oct": true, "nov": true, "dec": true,
	"vol": true, "ch": true, "pt": true, "pg": true, "pp": true, "fig": true, "eq": true,
}

// SentencesFromHTML parses chapter markup and returns its sentences.
func SentencesFromHTML(p markup.Parser, content string) ([]string, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	doc, err := p.ParseHTML([]byte(content))
	if err != nil {
		return nil, err
	}
	return ExtractSentences(doc), nil
}

// ExtractSentences returns the sentences of doc in reading order. Each block
// element contributes its own text and that of inline children; nested blocks
// are visited separately. A document without block elements is split as a
// whole. Fragments shorter than four runes are dropped.
func ExtractSentences(doc markup.Document) []string {
	var raw []string

	blocks := doc.All(blockSelector)
	if len(blocks) == 0 {
		raw = SplitSentences(doc.Text())
	}
	for _, block := range blocks {
		raw = append(raw, SplitSentences(block.DirectText(inlineTags))...)
	}

	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.Join(strings.Fields(s), " ")
		if utf8.RuneCountInString(s) >= minSentenceLength {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// SplitSentences breaks text at sentence-ending punctuation. Runs such as
// "..." or "?!" stay together, and a closing quote directly after the
// punctuation stays with its sentence.
func SplitSentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var (
		sentences []string
		current   []rune
	)
	flush := func() {
		if s := strings.TrimSpace(string(current)); s != "" {
			sentences = append(sentences, s)
		}
		current = current[:0]
	}

	for i := 0; i < len(runes); i++ {
		current = append(current, runes[i])
		if !isTerminal(runes[i]) {
			continue
		}
		for i+1 < len(runes) && isTerminal(runes[i+1]) {
			i++
			current = append(current, runes[i])
		}
		if !isBoundary(runes, i, current) {
			continue
		}
		if closesQuote(runes, i+1) {
			i++
			current = append(current, runes[i])
		}
		flush()
		for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			i++
		}
	}
	flush()

	return sentences
}

// isBoundary reports whether the punctuation run ending at pos ends a
// sentence. Only a period can fail to: before a lowercase letter or digit,
// after an abbreviation, or after a single-letter initial that is not
// followed by a capitalised word.
func isBoundary(text []rune, pos int, current []rune) bool {
	if text[pos] != '.' {
		return true
	}
	next := pos + 1
	if next >= len(text) || closesQuote(text, next) {
		return true
	}

	c := text[next]
	if unicode.IsLower(c) || unicode.IsDigit(c) {
		return false
	}

	word := wordBefore(current)
	if abbreviations[strings.ToLower(word)] {
		return false
	}
	if r, size := utf8.DecodeRuneInString(word); size == len(word) && unicode.IsLetter(r) && unicode.IsSpace(c) {
		return startsUpper(text[next:])
	}
	return true
}

// wordBefore returns the last run of letters and digits in s, ignoring the
// trailing punctuation.
func wordBefore(s []rune) string {
	end := len(s)
	for end > 0 && !isWordRune(s[end-1]) {
		end--
	}
	start := end
	for start > 0 && isWordRune(s[start-1]) {
		start--
	}
	return string(s[start:end])
}

func closesQuote(text []rune, pos int) bool {
	if pos >= len(text) || !isQuote(text[pos]) {
		return false
	}
	return pos+1 >= len(text) || unicode.IsSpace(text[pos+1])
}

func startsUpper(rs []rune) bool {
	for _, r := range rs {
		if !unicode.IsSpace(r) {
			return unicode.IsUpper(r)
		}
	}
	return false
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isQuote(r rune) bool {
	switch r {
	case '"', '\'', '”', '’':
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
