package oracle

import "strings"

// genreHints maps concept keywords to a genre and a typical BPM range.
// This is the deterministic pre-call hypothesis used to pick a library
// genre folder before the model is consulted; the model's own answer
// supersedes it for everything else.
var genreHints = []struct {
	keywords []string
	genre    string
	bpmLow   float64
	bpmHigh  float64
}{
	{[]string{"techno", "warehouse", "berlin"}, "techno", 120, 132},
	{[]string{"house", "deep house", "groove"}, "house", 118, 126},
	{[]string{"ambient", "drone", "meditation", "sleep"}, "ambient", 60, 90},
	{[]string{"lofi", "lo-fi", "chillhop", "study beats"}, "lofi", 70, 90},
	{[]string{"drum and bass", "dnb", "jungle"}, "dnb", 170, 178},
	{[]string{"downtempo", "trip hop", "chillout"}, "downtempo", 90, 110},
	{[]string{"jazz", "piano bar"}, "jazz", 80, 120},
}

// InferConcept derives a genre and BPM range hypothesis from a free-form
// concept string. Unknown concepts fall back to a generic electronic
// profile. Deterministic: same concept, same answer.
func InferConcept(concept string) (genre string, bpmLow, bpmHigh float64) {
	lower := strings.ToLower(concept)
	for _, h := range genreHints {
		for _, kw := range h.keywords {
			if strings.Contains(lower, kw) {
				return h.genre, h.bpmLow, h.bpmHigh
			}
		}
	}
	return "electronic", 100, 125
}
