// Package practice runs the mock theory exam ("test blanc").
package practice

import (
	"context"

	"github.com/pkg/errors"
)

// Question is one multiple-choice question. Correct indexes Options.
type Question struct {
	ID      int      `json:"id"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Correct int      `json:"correctAnswer"`
}

// Unanswered marks a question the user skipped.
const Unanswered = -1

// Questions is the fixed exam.
var Questions = []Question{
	{
		ID:      1,
		Text:    "Quelle est la vitesse maximale autorisée en agglomération?",
		Options: []string{"30 km/h", "50 km/h", "70 km/h", "90 km/h"},
		Correct: 1,
	},
	{
		ID:      2,
		Text:    "À quelle distance minimale d'un passage piéton doit-on s'arrêter?",
		Options: []string{"5 mètres", "10 mètres", "15 mètres", "20 mètres"},
		Correct: 0,
	},
	{
		ID:      3,
		Text:    "Quelle est la signification du panneau triangulaire rouge?",
		Options: []string{"Danger", "Obligation", "Interdiction", "Information"},
		Correct: 0,
	},
	{
		ID:      4,
		Text:    "Quand doit-on allumer les feux de croisement?",
		Options: []string{"Seulement la nuit", "La nuit et par mauvais temps", "Toujours", "Jamais"},
		Correct: 1,
	},
	{
		ID:      5,
		Text:    "Quelle est la distance de sécurité minimale à respecter?",
		Options: []string{"1 seconde", "2 secondes", "3 secondes", "4 secondes"},
		Correct: 1,
	},
}

// Result pairs a question with the given answer.
type Result struct {
	Question Question
	Answer   int
}

// OK reports whether the answer is right.
func (r Result) OK() bool { return r.Answer == r.Question.Correct }

// AnswerText is the chosen option, or "" when unanswered.
func (r Result) AnswerText() string {
	if r.Answer < 0 || r.Answer >= len(r.Question.Options) {
		return ""
	}
	return r.Question.Options[r.Answer]
}

// CorrectText is the right option.
func (r Result) CorrectText() string { return r.Question.Options[r.Question.Correct] }

// Review pairs each question with its answer. Missing answers count as
// Unanswered.
func Review(answers []int) []Result {
	out := make([]Result, len(Questions))
	for i, q := range Questions {
		a := Unanswered
		if i < len(answers) {
			a = answers[i]
		}
		out[i] = Result{Question: q, Answer: a}
	}
	return out
}

// Score is the percentage of correct answers.
func Score(answers []int) (float64, error) {
	if len(answers) > len(Questions) {
		return 0, errors.Errorf("practice: %d answers for %d questions", len(answers), len(Questions))
	}
	correct := 0
	for _, r := range Review(answers) {
		if r.OK() {
			correct++
		}
	}
	return float64(correct) / float64(len(Questions)) * 100, nil
}

// Recorder stores the last score. *session.Session implements it.
type Recorder interface {
	RecordTestScore(ctx context.Context, score float64) error
}

// Finish scores the answers and persists the result.
func Finish(ctx context.Context, rec Recorder, answers []int) (float64, error) {
	score, err := Score(answers)
	if err != nil {
		return 0, err
	}
	if err := rec.RecordTestScore(ctx, score); err != nil {
		return 0, errors.Wrap(err, "save test score")
	}
	return score, nil
}
