// Package koreantext holds small helpers for handling Korean player
// utterances and NPC lines: Unicode normalization, Hangul detection, and
// stripping of bracketed speech-synthesis tags.
package koreantext

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// audioTagPattern matches delivery cues like [laughing] or [sigh] that
// the renderer embeds for the speech synthesizer.
var audioTagPattern = regexp.MustCompile(`\[[^\[\]]+\]`)

// Normalize NFC-composes and trims an utterance. Browsers and mobile
// keyboards sometimes deliver Hangul as decomposed jamo, which would
// otherwise leak into prompts and stored transcripts.
func Normalize(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// ContainsHangul reports whether the text has at least one Hangul rune.
// Used to detect transcripts with no recognizable Korean speech.
func ContainsHangul(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}

// StripAudioTags removes bracketed synthesis cues and collapses the
// leftover whitespace, yielding the plain transcript of a line.
func StripAudioTags(s string) string {
	out := audioTagPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(out), " ")
}
