package ocr

import (
	"regexp"
	"strings"
	"unicode"
)

// confusableReplacer maps glyph sequences that OCR engines commonly emit for
// Arabic ligatures and presentation forms back to their canonical spelling.
var confusableReplacer = strings.NewReplacer(
	"ﻻ", "لا", // lam-alef isolated
	"ﻼ", "لا", // lam-alef final
	"ﻷ", "لأ", // lam-alef with hamza above, isolated
	"ﻸ", "لأ", // lam-alef with hamza above, final
	"ﻹ", "لإ", // lam-alef with hamza below, isolated
	"ﻺ", "لإ", // lam-alef with hamza below, final
	"ﻵ", "لآ", // lam-alef with madda, isolated
	"ﻶ", "لآ", // lam-alef with madda, final
	"ﷲ", "الله", // Allah ligature
	"ٱ", "ا", // alef wasla
	"ی", "ي", // Farsi yeh
	"ک", "ك", // keheh
	"ہ", "ه", // heh goal
	"ـ", "", // tatweel is layout filler, never content
)

var (
	spaceRunPattern   = regexp.MustCompile(`[ \t]+`)
	newlineRunPattern = regexp.MustCompile(`\n{3,}`)
)

// CleanArabicText normalizes OCR output for Arabic book pages: collapses
// repeated whitespace, canonicalizes confusable glyphs, strips diacritics
// that lost their base letter, bounds blank runs and filters characters
// outside the allowed script ranges.
func CleanArabicText(text string) string {
	cleaned := spaceRunPattern.ReplaceAllString(text, " ")
	cleaned = confusableReplacer.Replace(cleaned)
	cleaned = stripOrphanDiacritics(cleaned)
	cleaned = newlineRunPattern.ReplaceAllString(cleaned, "\n\n")
	cleaned = filterAllowedRunes(cleaned)
	return strings.TrimSpace(cleaned)
}

// stripOrphanDiacritics removes harakat that do not follow an Arabic base
// letter. OCR engines emit these when they misread specks and page noise.
func stripOrphanDiacritics(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))

	hasBase := false
	for _, r := range text {
		if isArabicDiacritic(r) {
			if hasBase {
				builder.WriteRune(r)
			}
			continue
		}
		hasBase = isArabicLetter(r)
		builder.WriteRune(r)
	}

	return builder.String()
}

func isArabicDiacritic(r rune) bool {
	return (r >= 0x064B && r <= 0x065F) || r == 0x0670
}

func isArabicLetter(r rune) bool {
	switch {
	case r >= 0x0621 && r <= 0x064A:
		return true
	case r >= 0x0671 && r <= 0x06D3:
		return true
	case r >= 0x0750 && r <= 0x077F:
		return true
	default:
		return false
	}
}

const allowedPunctuation = `.,;:!?()[]{}'"-/\%&+=*#@<>|` + "،؛؟«»…"

// filterAllowedRunes keeps Arabic script ranges, ASCII letters and digits,
// basic punctuation and whitespace; everything else is OCR noise.
func filterAllowedRunes(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))

	for _, r := range text {
		if isAllowedRune(r) {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

func isAllowedRune(r rune) bool {
	switch {
	case unicode.IsSpace(r):
		return true
	case r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		return true
	case strings.ContainsRune(allowedPunctuation, r):
		return true
	case r >= 0x0600 && r <= 0x06FF:
		return true
	case r >= 0x0750 && r <= 0x077F:
		return true
	case r >= 0x08A0 && r <= 0x08FF:
		return true
	case r >= 0xFB50 && r <= 0xFDFF:
		return true
	case r >= 0xFE70 && r <= 0xFEFF:
		return true
	default:
		return false
	}
}
