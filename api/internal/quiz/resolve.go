package quiz

// LettersLabels mark alternatives in the screen variants.
var LettersLabels = []string{"A", "B", "C", "D"}

// NumericLabels mark alternatives in the printed exam layout.
var NumericLabels = []string{"(1)", "(2)", "(3)", "(4)"}

const correctScore = "1"

// Resolution is the outcome of answer resolution. Index is -1 when nothing scored.
type Resolution struct {
	Index int
	Text  string
}

func (r Resolution) Found() bool { return r.Index >= 0 }

// Label returns the label at Index, or "" when unresolved or out of range.
func (r Resolution) Label(labels []string) string {
	if !r.Found() || r.Index >= len(labels) {
		return ""
	}
	return labels[r.Index]
}

// Resolve picks the first of the leading four alternatives whose score reads exactly "1".
func Resolve(alts []Alternative) Resolution {
	if len(alts) > MaxAlternatives {
		alts = alts[:MaxAlternatives]
	}
	for i, a := range alts {
		if a.Score == correctScore {
			return Resolution{Index: i, Text: a.Answer}
		}
	}
	return Resolution{Index: -1}
}
