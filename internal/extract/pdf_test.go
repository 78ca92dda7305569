package extract

import (
	"strings"
	"testing"
)

func TestHasMeaningfulTextAcceptsRealPage(t *testing.T) {
	text := strings.Join([]string{
		"هذا سطر طويل من نص الكتاب الحقيقي في الصفحة",
		"وهذا سطر آخر طويل يحمل محتوى فعليا للقارئ",
		"وسطر ثالث يكمل الفقرة بما يكفي من الكلمات",
	}, "\n")

	if !hasMeaningfulText(text) {
		t.Error("expected real page text to pass the heuristic")
	}
}

func TestHasMeaningfulTextRejectsShortText(t *testing.T) {
	if hasMeaningfulText("نص قصير") {
		t.Error("expected short text to fail the heuristic")
	}
}

func TestHasMeaningfulTextRejectsArtifactLines(t *testing.T) {
	// Plenty of characters overall, but almost every line is a header or
	// page-number sized fragment.
	lines := make([]string, 0, 20)
	for i := 0; i < 19; i++ {
		lines = append(lines, "١٢ فصل")
	}
	lines = append(lines, "سطر واحد طويل يحمل نصا حقيقيا في هذه الصفحة")

	if hasMeaningfulText(strings.Join(lines, "\n")) {
		t.Error("expected artifact-dominated text to fail the heuristic")
	}
}

func TestHasMeaningfulTextRejectsFragmentedLeadingLines(t *testing.T) {
	// Enough characters and an acceptable substantial-line ratio, but the
	// substantial lines themselves are too short to be prose.
	lines := []string{
		strings.Repeat("ك", 13),
		strings.Repeat("ك", 13),
		strings.Repeat("ب", 10),
		strings.Repeat("ب", 10),
		strings.Repeat("ب", 10),
		strings.Repeat("ب", 10),
	}

	if hasMeaningfulText(strings.Join(lines, "\n")) {
		t.Error("expected fragmented text to fail the heuristic")
	}
}

func TestDropEmptyRemovesBlankUnits(t *testing.T) {
	pages := []ExtractedPage{
		{Text: "نص حقيقي", SourceIndex: 1},
		{Text: "   \n ", SourceIndex: 2},
		{Text: "نص آخر", SourceIndex: 3},
	}

	got := dropEmpty(pages)
	if len(got) != 2 {
		t.Fatalf("got %d pages, want 2", len(got))
	}
	if got[0].SourceIndex != 1 || got[1].SourceIndex != 3 {
		t.Errorf("got source indexes %d, %d", got[0].SourceIndex, got[1].SourceIndex)
	}
}
