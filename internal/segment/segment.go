package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxLength is the segment length limit used when callers pass a
// non-positive maximum.
const DefaultMaxLength = 100

// Split breaks transcript text into ordered segments of at most maxLength
// characters, grouping whole sentences where they fit and falling back to
// comma-delimited clauses for sentences that are too long on their own.
//
// A clause that still exceeds maxLength is emitted whole rather than cut, so
// callers must tolerate the occasional oversized segment (see Oversized).
// Whitespace runs are collapsed to single spaces; no other character is
// added or removed.
func Split(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return []string{}
	}

	acc := accumulator{max: maxLength}
	for _, sentence := range Sentences(text) {
		if runeLen(sentence) <= maxLength {
			acc.add(sentence)
			continue
		}
		for _, clause := range clauses(sentence) {
			acc.add(clause)
		}
	}
	return acc.finish()
}

// Sentences splits text after '.', '!' or '?' when followed by whitespace.
// The terminal punctuation stays with its sentence; text without any
// terminal punctuation is returned as a single sentence.
func Sentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next >= len(text) {
			break
		}
		if following, _ := utf8.DecodeRuneInString(text[next:]); !unicode.IsSpace(following) {
			continue
		}
		if s := strings.TrimSpace(text[start:next]); s != "" {
			out = append(out, s)
		}
		start = next
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// clauses splits an over-long sentence on commas, re-attaching the comma to
// every clause except the sentence's last.
func clauses(sentence string) []string {
	parts := strings.Split(sentence, ",")
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if i < len(parts)-1 {
			part += ","
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

type accumulator struct {
	max      int
	buf      strings.Builder
	bufLen   int
	segments []string
}

// add appends piece to the running buffer when the joined result stays within
// the limit; otherwise the buffer is flushed and piece starts a new one.
func (a *accumulator) add(piece string) {
	pieceLen := runeLen(piece)
	if a.bufLen > 0 && a.bufLen+1+pieceLen > a.max {
		a.flush()
	}
	if a.bufLen > 0 {
		a.buf.WriteByte(' ')
		a.bufLen++
	}
	a.buf.WriteString(piece)
	a.bufLen += pieceLen
}

func (a *accumulator) flush() {
	if s := strings.TrimSpace(a.buf.String()); s != "" {
		a.segments = append(a.segments, s)
	}
	a.buf.Reset()
	a.bufLen = 0
}

func (a *accumulator) finish() []string {
	a.flush()
	if a.segments == nil {
		return []string{}
	}
	return a.segments
}

// Oversized returns the indexes of segments longer than maxLength. These are
// clauses that could not be split further without cutting words.
func Oversized(segments []string, maxLength int) []int {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	var idx []int
	for i, s := range segments {
		if runeLen(s) > maxLength {
			idx = append(idx, i)
		}
	}
	return idx
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
