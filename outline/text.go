package outline

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

const ellipsis = "…"

// collapseSpace trims s and folds every whitespace run to one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripControl drops control characters other than tab and newline.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f || r == utf8.RuneError {
			return -1
		}
		return r
	}, s)
}

// cleanLine is the normal form of a title, bullet or note.
func cleanLine(s string) string {
	return collapseSpace(stripControl(s))
}

// truncate shortens s to at most limit runes, cutting on a grapheme
// boundary and ending with an ellipsis when anything was dropped.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	budget := limit - 1
	var b strings.Builder
	used := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		n := len(gr.Runes())
		if used+n > budget {
			break
		}
		b.WriteString(gr.Str())
		used += n
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace) + ellipsis
}

// clampLine cleans s and truncates it to limit runes.
func clampLine(s string, limit int) string {
	return truncate(cleanLine(s), limit)
}

// clampCode keeps line structure but drops control characters and
// trailing blank lines before truncating. Only the code is cut, so the
// marker survives; a limit too small to hold it yields a plain line.
func clampCode(code string, limit int) string {
	code = strings.TrimRight(stripControl(code), "\n\t ")
	room := limit - utf8.RuneCountInString(CodeBulletPrefix)
	if room < 1 {
		return clampLine(code, limit)
	}
	return CodeBulletPrefix + truncate(code, room)
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isWideTerminal(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', ')', ']', '»', '」', '』':
		return true
	}
	return false
}

// splitSentences splits collapsed text at sentence boundaries. A latin
// terminator ends a sentence only when followed by whitespace (after any
// closing quotes), so "3.2%" and "e.g.x" stay intact; CJK terminators
// always end one.
func splitSentences(s string) []string {
	runes := []rune(collapseSpace(s))
	var out []string
	start := 0
	emit := func(end int) {
		sentence := strings.TrimSpace(string(runes[start:end]))
		start = end
		if sentence == "" || strings.Trim(sentence, ".!?。！？ ") == "" {
			return
		}
		out = append(out, sentence)
	}
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case isWideTerminal(r):
			j := i + 1
			for j < len(runes) && isCloser(runes[j]) {
				j++
			}
			emit(j)
			i = j - 1
		case isTerminal(r):
			j := i + 1
			for j < len(runes) && (isTerminal(runes[j]) || isCloser(runes[j])) {
				j++
			}
			if j == len(runes) || unicode.IsSpace(runes[j]) {
				emit(j)
				i = j - 1
			}
		}
	}
	emit(len(runes))
	return out
}

// firstClause returns the leading clause of a sentence without trailing
// punctuation. Used for synthesized titles.
func firstClause(sentence string) string {
	s := strings.TrimSpace(sentence)
	cut := strings.IndexAny(s, ",;:—–")
	if dash := strings.Index(s, " - "); dash >= 0 && (cut < 0 || dash < cut) {
		cut = dash
	}
	if cut > 0 {
		if head := strings.TrimSpace(s[:cut]); utf8.RuneCountInString(head) >= 3 {
			s = head
		}
	}
	return strings.TrimRightFunc(s, func(r rune) bool {
		return isTerminal(r) || isWideTerminal(r) || unicode.IsSpace(r)
	})
}

// isQuotedText reports whether s is wrapped in a matching pair of
// quotation marks.
func isQuotedText(s string) bool {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < 3 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	switch first {
	case '"':
		return last == '"'
	case '“':
		return last == '”'
	case '«':
		return last == '»'
	case '「':
		return last == '」'
	}
	return false
}
