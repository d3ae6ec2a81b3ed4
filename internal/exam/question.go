package exam

import (
	"fmt"
	"math"
	"strings"

	dErrors "rnp-recruitment/pkg/domain-errors"
)

// OptionsPerQuestion is fixed by the answer sheet layout.
const OptionsPerQuestion = 4

// Question is one multiple-choice question. Ans indexes Opts.
type Question struct {
	ID   int64    `json:"id" yaml:"id"`
	Q    string   `json:"q" yaml:"q"`
	Opts []string `json:"opts" yaml:"opts"`
	Ans  int      `json:"ans" yaml:"ans"`
}

// PublicQuestion hides the correct answer.
type PublicQuestion struct {
	ID   int64    `json:"id"`
	Q    string   `json:"q"`
	Opts []string `json:"opts"`
}

func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Q: q.Q, Opts: q.Opts}
}

// Validate checks the question text, the four options and the answer index.
func (q *Question) Validate() error {
	q.Q = strings.TrimSpace(q.Q)
	if q.Q == "" {
		return dErrors.New(dErrors.CodeValidation, "question text is required")
	}
	if len(q.Opts) != OptionsPerQuestion {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("question %q must have exactly %d options", q.Q, OptionsPerQuestion))
	}
	for i := range q.Opts {
		q.Opts[i] = strings.TrimSpace(q.Opts[i])
		if q.Opts[i] == "" {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("question %q has an empty option", q.Q))
		}
	}
	if q.Ans < 0 || q.Ans >= OptionsPerQuestion {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("question %q answer must be between 0 and %d", q.Q, OptionsPerQuestion-1))
	}
	return nil
}

// Answers maps question id to the selected option index.
type Answers map[int64]int

// Result is a graded answer sheet.
type Result struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
	Score   int `json:"score"`
}

// Grade scores answers against questions as a rounded percentage. An empty
// bank scores 0. Unanswered questions and unknown ids count as incorrect.
func Grade(questions []Question, answers Answers) Result {
	res := Result{Total: len(questions)}
	for _, q := range questions {
		if got, ok := answers[q.ID]; ok && got == q.Ans {
			res.Correct++
		}
	}
	if res.Total > 0 {
		res.Score = int(math.Round(100 * float64(res.Correct) / float64(res.Total)))
	}
	return res
}

// SeedQuestions is the bank used until an admin replaces it.
func SeedQuestions() []Question {
	return []Question{
		{
			ID:   1,
			Q:    "What is the core motto of RNP?",
			Opts: []string{"Service, Protection, Integrity", "Power and Justice", "Law and Order", "Defend and Serve"},
			Ans:  0,
		},
		{
			ID:   2,
			Q:    "Which of the following is NOT a department of RNP?",
			Opts: []string{"Traffic Police", "Criminal Investigation", "Space Exploration", "Fire and Rescue"},
			Ans:  2,
		},
		{
			ID:   3,
			Q:    "Integrity means:",
			Opts: []string{"Being honest and having strong moral principles", "Being physically strong", "Being able to shoot well", "Being on time"},
			Ans:  0,
		},
		{
			ID:   4,
			Q:    "The mission of the Rwanda National Police is to:",
			Opts: []string{"Make money", "Deliver high quality service, accountability and transparency", "Control the army", "None of the above"},
			Ans:  1,
		},
	}
}
