package questionnaire

import (
	"errors"
	"time"

	"budget-backend/internal/profile"
	"budget-backend/internal/shared/apperr"
)

// ErrUnknownQuestion is returned when an answer names a question the form does not have.
var ErrUnknownQuestion = errors.New("unknown question")

// Questionnaire walks a user through the snapshot form (step 0), one step per
// question (1..K) and a terminal summary step (K+1). It is not safe for
// concurrent use.
type Questionnaire struct {
	userID    string
	questions []Question
	step      int

	snapshot    profile.FinancialSnapshot
	hasSnapshot bool
	answers     map[string]string

	frozen *profile.Profile
	now    func() time.Time
}

// New starts a questionnaire at step 0.
func New(userID string, questions []Question) *Questionnaire {
	return &Questionnaire{
		userID:    userID,
		questions: append([]Question(nil), questions...),
		answers:   make(map[string]string),
		now:       time.Now,
	}
}

// Resume starts a questionnaire at step 0 prefilled from a saved profile.
func Resume(p profile.Profile, questions []Question) *Questionnaire {
	q := New(p.UserID, questions)
	q.snapshot = p.Snapshot.Normalize()
	q.hasSnapshot = true
	for _, a := range p.Preferences.Answers {
		if _, ok := q.question(a.QuestionID); ok {
			q.answers[a.QuestionID] = a.Value
		}
	}
	return q
}

// Step is the current step index.
func (q *Questionnaire) Step() int { return q.step }

// SummaryStep is the index of the terminal step.
func (q *Questionnaire) SummaryStep() int { return len(q.questions) + 1 }

// Complete reports whether the summary step has been reached.
func (q *Questionnaire) Complete() bool { return q.step == q.SummaryStep() }

// Questions returns the form definition.
func (q *Questionnaire) Questions() []Question {
	return append([]Question(nil), q.questions...)
}

// Current returns the question for the current step, if the step is a question.
func (q *Questionnaire) Current() (Question, bool) {
	if q.step < 1 || q.step > len(q.questions) {
		return Question{}, false
	}
	return q.questions[q.step-1], true
}

// Progress is (step+1)/(K+2).
func (q *Questionnaire) Progress() float64 {
	return float64(q.step+1) / float64(len(q.questions)+2)
}

// SetSnapshot records the financial snapshot answer for step 0.
func (q *Questionnaire) SetSnapshot(s profile.FinancialSnapshot) error {
	if q.Complete() {
		return errCompleted()
	}
	q.snapshot = s.Normalize()
	q.hasSnapshot = true
	return nil
}

// Snapshot returns the recorded snapshot.
func (q *Questionnaire) Snapshot() profile.FinancialSnapshot {
	return q.snapshot.Normalize()
}

// Answer records value for questionID. Valid answers are stored in canonical
// form; invalid ones are kept as given so ValidateStep can report them.
func (q *Questionnaire) Answer(questionID, value string) error {
	if q.Complete() {
		return errCompleted()
	}
	question, ok := q.question(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if normalized, err := question.Normalize(value); err == nil {
		value = normalized
	}
	q.answers[questionID] = value
	return nil
}

// ValidateStep checks the recorded answer for step.
func (q *Questionnaire) ValidateStep(step int) error {
	switch {
	case step == 0:
		if !q.hasSnapshot {
			return apperr.Invalid("snapshot", "income and debts are required")
		}
		return q.snapshot.Validate()
	case step >= 1 && step <= len(q.questions):
		question := q.questions[step-1]
		_, err := question.Normalize(q.answers[question.ID])
		return err
	case step == q.SummaryStep():
		return nil
	default:
		return apperr.Invalid("step", "out of range")
	}
}

// Advance moves to the next step when the current one validates. It reports
// true when the move reached the summary step, which freezes the profile.
func (q *Questionnaire) Advance() (bool, error) {
	if q.Complete() {
		return false, errCompleted()
	}
	if err := q.ValidateStep(q.step); err != nil {
		return false, err
	}
	q.step++
	if !q.Complete() {
		return false, nil
	}
	frozen := profile.Profile{
		UserID:      q.userID,
		Preferences: q.CurrentAnswers(),
		Snapshot:    q.Snapshot(),
		CompletedAt: q.now().UTC(),
	}
	q.frozen = &frozen
	return true, nil
}

// Retreat moves back one step. Leaving the summary step re-opens editing.
func (q *Questionnaire) Retreat() error {
	if q.step == 0 {
		return apperr.Invalid("step", "already at the first step")
	}
	q.step--
	q.frozen = nil
	return nil
}

// Frozen returns a copy of the profile frozen when the summary step was reached.
func (q *Questionnaire) Frozen() (profile.Profile, bool) {
	if q.frozen == nil {
		return profile.Profile{}, false
	}
	p := *q.frozen
	p.Preferences = p.Preferences.Clone()
	p.Snapshot = p.Snapshot.Normalize()
	return p, true
}

// CurrentAnswers returns a copy of the recorded answers in question order.
func (q *Questionnaire) CurrentAnswers() profile.Preferences {
	var prefs profile.Preferences
	for _, question := range q.questions {
		if v, ok := q.answers[question.ID]; ok {
			prefs = prefs.With(question.ID, v)
		}
	}
	return prefs
}

func (q *Questionnaire) question(id string) (Question, bool) {
	for _, question := range q.questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

func errCompleted() error {
	return apperr.Invalid("step", "questionnaire is complete; go back to edit")
}
