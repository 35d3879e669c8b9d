// Package sequencer derives the active interview sequence from the catalog
// and the answers collected so far.
package sequencer

import "github.com/bayb/pathway/internal/model"

// Active returns the catalog questions that apply to answers, in catalog
// order. It never reorders and never mutates its inputs.
func Active(catalog []model.Question, answers model.Answers) []model.Question {
	seq := make([]model.Question, 0, len(catalog))
	for _, q := range catalog {
		if q.Active(answers) {
			seq = append(seq, q)
		}
	}
	return seq
}

// IndexOf returns the position of the question with id in seq, or -1.
func IndexOf(seq []model.Question, id string) int {
	for i, q := range seq {
		if q.ID == id {
			return i
		}
	}
	return -1
}

// Progress returns the percentage shown for position within seq.
func Progress(position int, seq []model.Question) float64 {
	if len(seq) == 0 {
		return 100
	}
	return float64(position+1) / float64(len(seq)) * 100
}
