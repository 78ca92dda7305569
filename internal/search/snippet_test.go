package search

import (
	"strings"
	"testing"

	"maktaba/app/internal/library"
)

func TestBuildSnippetReturnsShortTextUnchanged(t *testing.T) {
	text := "نص قصير عن التاريخ"

	if got := buildSnippet(text, "التاريخ", snippetLength); got != text {
		t.Errorf("got %q, want unchanged text", got)
	}
}

func TestBuildSnippetWindowsAroundMatch(t *testing.T) {
	text := strings.Repeat("م ", 200) + "الخلافة العباسية" + strings.Repeat(" ن", 200)

	got := buildSnippet(text, "الخلافة", snippetLength)

	if !strings.Contains(got, "الخلافة العباسية") {
		t.Errorf("snippet %q does not contain the match", got)
	}
	if !strings.HasPrefix(got, ellipsis) || !strings.HasSuffix(got, ellipsis) {
		t.Errorf("snippet %q missing ellipses on both sides", got)
	}
	if length := len([]rune(got)); length > snippetLength+2 {
		t.Errorf("snippet length %d exceeds window", length)
	}
}

func TestBuildSnippetMatchesCaseInsensitively(t *testing.T) {
	text := strings.Repeat("x ", 150) + "The Abbasid Caliphate ruled for centuries." + strings.Repeat(" y", 150)

	got := buildSnippet(text, "abbasid caliphate", snippetLength)
	if !strings.Contains(got, "Abbasid Caliphate") {
		t.Errorf("snippet %q does not contain the case-folded match", got)
	}
}

func TestBuildSnippetFallsBackToPrefix(t *testing.T) {
	text := strings.Repeat("كلمة ", 100)

	got := buildSnippet(text, "غائب تماما", snippetLength)
	if !strings.HasSuffix(got, ellipsis) {
		t.Errorf("snippet %q missing trailing ellipsis", got)
	}
	if want := string([]rune(text)[:snippetLength]) + ellipsis; got != want {
		t.Errorf("got %q, want prefix fallback", got)
	}
}

func TestLanguageSnippetPrefersMatchingTranslation(t *testing.T) {
	row := library.SearchRow{
		OriginalText:  "النص الأصلي",
		EnTranslation: "the english translation",
		IDTranslation: "terjemahan indonesia",
	}

	if got := languageSnippet(row, "english", "en"); got != "[EN] the english translation" {
		t.Errorf("got %q, want tagged english snippet", got)
	}
	if got := languageSnippet(row, "terjemahan", "id"); got != "[ID] terjemahan indonesia" {
		t.Errorf("got %q, want tagged indonesian snippet", got)
	}
}

func TestLanguageSnippetFallsBackToOtherTranslation(t *testing.T) {
	row := library.SearchRow{
		OriginalText:  "النص الأصلي",
		IDTranslation: "terjemahan indonesia",
	}

	if got := languageSnippet(row, "query", "en"); got != "[ID] terjemahan indonesia" {
		t.Errorf("got %q, want fallback to indonesian", got)
	}
}

func TestLanguageSnippetFallsBackToOriginal(t *testing.T) {
	row := library.SearchRow{OriginalText: "النص الأصلي"}

	if got := languageSnippet(row, "query", "en"); got != "النص الأصلي" {
		t.Errorf("got %q, want untagged original text", got)
	}
	if got := languageSnippet(row, "query", ""); got != "النص الأصلي" {
		t.Errorf("got %q, want original text for unknown language", got)
	}
}
