package ocr

import "testing"

func TestTrimBlankEdges(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"leading blanks", "\n\n  \nنص الصفحة", "نص الصفحة"},
		{"trailing blanks", "نص الصفحة\n\n \n", "نص الصفحة"},
		{"interior blanks kept", "فقرة أولى\n\nفقرة ثانية", "فقرة أولى\n\nفقرة ثانية"},
		{"all blank", " \n\t\n ", ""},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := trimBlankEdges(tc.input); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
