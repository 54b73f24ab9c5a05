package speech

import (
	"regexp"
	"strings"
)

// searchLimit bounds how far into a chapter front matter is looked for.
const searchLimit = 100

// resumeOffset is how many sentences past the last front-matter match
// playback starts when no explicit content marker exists.
const resumeOffset = 3

var contentStartPatterns = compileAll(
	`^prologue`,
	`^prolog\b`,
	`^chapter\s*(one|1|i\b)`,
	`^chapter\s*\d+`,
	`^part\s*(one|1|i\b)`,
	`^part\s*\d+`,
	`^book\s*(one|1|i\b)`,
	`^section\s*(one|1|i\b)`,
	`^act\s*(one|1|i\b)`,
	`^introduction\b`,
	`^preface\b`,
	`^foreword\b`,
)

var frontMatterPatterns = compileAll(
	`^copyright`,
	`^all rights reserved`,
	`^published by`,
	`^dedication\b`,
	`^for\s+my`,
	`^to\s+my\s+(wife|husband|family|mother|father)`,
	`^acknowledgments?`,
	`^about the author`,
	`^table of contents`,
	`^contents\s*$`,
	`^isbn`,
	`^first (edition|published|printing)`,
	`^printed in`,
	`^cover (design|art|illustration)`,
	`^editor:`,
	`^also by`,
	`^other (books|works) by`,
	`^this (book|novel|work) is`,
	`^\d{4}\s+by\s+`,
	`^epigraph`,
)

var contentTitlePatterns = compileAll(
	`^prologue`,
	`^chapter`,
	`^part\s`,
	`^book\s`,
	`^section`,
	`^act\s`,
	`^introduction`,
	`^preface`,
	`^\d+\.`,
	`^[ivx]+\.`,
)

var frontMatterTitles = []string{
	"copyright", "legal", "rights",
	"dedication", "dedicated to",
	"acknowledgments", "acknowledgements",
	"about the author", "about the book",
	"table of contents", "contents",
	"title page", "half title",
	"epigraph", "frontispiece",
	"also by", "other books",
	"cover",
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// ContentStart returns the index of the first sentence that looks like
// story content. A chapter, part or prologue marker within the first
// hundred sentences wins. Otherwise playback resumes three sentences after
// the last front-matter line, and at 0 when none is found.
func ContentStart(sentences []string) int {
	limit := min(len(sentences), searchLimit)

	for i := 0; i < limit; i++ {
		if matchAny(contentStartPatterns, strings.TrimSpace(sentences[i])) {
			return i
		}
	}

	last := -1
	for i := 0; i < limit; i++ {
		if matchAny(frontMatterPatterns, strings.TrimSpace(sentences[i])) {
			last = i
		}
	}
	if last < 0 {
		return 0
	}
	return min(last+resumeOffset, len(sentences)-1)
}

// SkipFrontMatter returns sentences starting at ContentStart.
func SkipFrontMatter(sentences []string) []string {
	return sentences[ContentStart(sentences):]
}

// IsFrontMatterTitle reports whether a chapter title names front matter
// such as a copyright page, dedication or table of contents.
func IsFrontMatterTitle(title string) bool {
	title = strings.ToLower(strings.TrimSpace(title))
	for _, marker := range frontMatterTitles {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return false
}

// IsContentTitle reports whether a chapter title marks story content.
func IsContentTitle(title string) bool {
	return matchAny(contentTitlePatterns, strings.TrimSpace(title))
}

// FirstContentChapter returns the index of the first title that marks story
// content. Failing that it returns the first title that is not front matter,
// and 0 when every title is.
func FirstContentChapter(titles []string) int {
	for i, t := range titles {
		if IsContentTitle(t) {
			return i
		}
	}
	for i, t := range titles {
		if !IsFrontMatterTitle(t) {
			return i
		}
	}
	return 0
}
