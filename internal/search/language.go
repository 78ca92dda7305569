package search

import "strings"

// stopWordRatio is the fraction of query tokens that must match a language's
// stop-word list to classify the query as that language.
const stopWordRatio = 0.2

var englishStopWords = wordSet(
	"the", "a", "an", "and", "or", "of", "in", "on", "at", "to", "for",
	"is", "are", "was", "were", "be", "what", "which", "who", "how",
	"with", "from", "by", "about", "this", "that", "it", "not", "do",
	"does", "did", "have", "has", "had", "will", "would", "can", "could",
)

var indonesianStopWords = wordSet(
	"yang", "dan", "di", "ke", "dari", "untuk", "dengan", "pada", "adalah",
	"ini", "itu", "atau", "juga", "tidak", "dalam", "akan", "bisa", "ada",
	"apa", "siapa", "bagaimana", "mengapa", "kapan", "dimana", "saya",
	"kami", "mereka", "tentang", "oleh", "sebagai", "telah", "sudah",
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}

// DetectLanguage classifies a query as "en" or "id" by stop-word ratio, or
// returns "" when neither list matches enough tokens. English wins ties.
func DetectLanguage(query string) string {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return ""
	}

	var english, indonesian int
	for _, token := range tokens {
		if _, ok := englishStopWords[token]; ok {
			english++
		}
		if _, ok := indonesianStopWords[token]; ok {
			indonesian++
		}
	}

	total := float64(len(tokens))
	englishRatio := float64(english) / total
	indonesianRatio := float64(indonesian) / total

	switch {
	case englishRatio > stopWordRatio && englishRatio >= indonesianRatio:
		return "en"
	case indonesianRatio > stopWordRatio:
		return "id"
	default:
		return ""
	}
}
