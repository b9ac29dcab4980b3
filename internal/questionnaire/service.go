package questionnaire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"budget-backend/internal/profile"
	"budget-backend/internal/shared/apperr"
	"budget-backend/internal/shared/telemetry"
)

// Completer is notified with the frozen profile when a user finishes the questionnaire.
type Completer interface {
	Complete(ctx context.Context, p profile.Profile) error
}

// View is the client-facing state of a session.
type View struct {
	Step        int                       `json:"step"`
	SummaryStep int                       `json:"summaryStep"`
	Progress    float64                   `json:"progress"`
	Complete    bool                      `json:"complete"`
	Question    *Question                 `json:"question,omitempty"`
	Questions   []Question                `json:"questions"`
	Snapshot    profile.FinancialSnapshot `json:"snapshot"`
	Answers     []profile.Answer          `json:"answers"`
}

// AnswerInput records either the snapshot (step 0) or one question's answer.
type AnswerInput struct {
	Snapshot   *profile.FinancialSnapshot `json:"snapshot,omitempty"`
	QuestionID string                     `json:"questionId,omitempty"`
	Value      string                     `json:"value,omitempty"`
}

// Service keeps one questionnaire session per user.
type Service struct {
	Profiles  profile.Repo
	Completer Completer
	Questions []Question

	mu       sync.Mutex
	sessions map[string]*Questionnaire
	inflight sync.WaitGroup
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(profiles profile.Repo, completer Completer, questions []Question) *Service {
	if len(questions) == 0 {
		questions = DefaultQuestions()
	}
	return &Service{
		Profiles:  profiles,
		Completer: completer,
		Questions: questions,
		sessions:  make(map[string]*Questionnaire),
		now:       time.Now,
	}
}

// Get returns the user's session, starting one from the saved profile when there is one.
func (s *Service) Get(ctx context.Context, userID string) (View, error) {
	q, err := s.session(ctx, userID)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return view(q), nil
}

// Answer records an answer on the user's session.
func (s *Service) Answer(ctx context.Context, userID string, in AnswerInput) (View, error) {
	q, err := s.session(ctx, userID)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case in.Snapshot != nil:
		err = q.SetSnapshot(*in.Snapshot)
	case strings.TrimSpace(in.QuestionID) != "":
		err = q.Answer(strings.TrimSpace(in.QuestionID), in.Value)
		if errors.Is(err, ErrUnknownQuestion) {
			err = apperr.Invalid("questionId", "unknown question "+in.QuestionID)
		}
	default:
		err = apperr.Invalid("answer", "snapshot or questionId is required")
	}
	if err != nil {
		return View{}, err
	}
	return view(q), nil
}

// Advance moves the session forward. Reaching the summary step saves the
// profile and notifies the Completer in the background.
func (s *Service) Advance(ctx context.Context, userID string) (View, error) {
	q, err := s.session(ctx, userID)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	completed, err := q.Advance()
	v := view(q)
	frozen, _ := q.Frozen()
	completion := q.frozen
	s.mu.Unlock()
	if err != nil {
		return View{}, err
	}
	if !completed {
		return v, nil
	}

	if err := s.Profiles.Upsert(ctx, frozen); err != nil {
		err = fmt.Errorf("save profile user=%s: %w", userID, err)
		s.mu.Lock()
		defer s.mu.Unlock()
		// Only undo this completion; the session may have moved on meanwhile.
		if q.frozen == completion {
			if rerr := q.Retreat(); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}
		return View{}, err
	}
	telemetry.Info("questionnaire.completed", map[string]any{
		"userId":  userID,
		"answers": len(frozen.Preferences.Answers),
		"debts":   len(frozen.Snapshot.Debts),
	})
	s.notify(ctx, frozen)
	return v, nil
}

// Retreat moves the session back one step.
func (s *Service) Retreat(ctx context.Context, userID string) (View, error) {
	q, err := s.session(ctx, userID)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := q.Retreat(); err != nil {
		return View{}, err
	}
	return view(q), nil
}

// Wait blocks until every triggered completion has returned.
func (s *Service) Wait() {
	s.inflight.Wait()
}

func (s *Service) notify(ctx context.Context, p profile.Profile) {
	if s.Completer == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.Completer.Complete(detached, p); err != nil {
			telemetry.Warn("questionnaire.completion_failed", map[string]any{
				"userId": p.UserID,
				"code":   apperr.Code(err),
				"error":  apperr.Sanitize(err),
			})
		}
	}()
}

func (s *Service) session(ctx context.Context, userID string) (*Questionnaire, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.Invalid("userId", "is required")
	}
	s.mu.Lock()
	q, ok := s.sessions[userID]
	s.mu.Unlock()
	if ok {
		return q, nil
	}

	var fresh *Questionnaire
	saved, err := s.Profiles.Get(ctx, userID)
	switch {
	case err == nil:
		fresh = Resume(saved, s.Questions)
	case errors.Is(err, profile.ErrNotFound):
		fresh = New(userID, s.Questions)
	default:
		return nil, fmt.Errorf("load profile user=%s: %w", userID, err)
	}
	fresh.now = s.now

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[userID]; ok {
		return existing, nil
	}
	s.sessions[userID] = fresh
	return fresh, nil
}

func view(q *Questionnaire) View {
	v := View{
		Step:        q.Step(),
		SummaryStep: q.SummaryStep(),
		Progress:    q.Progress(),
		Complete:    q.Complete(),
		Questions:   q.Questions(),
		Snapshot:    q.Snapshot(),
		Answers:     q.CurrentAnswers().Answers,
	}
	if current, ok := q.Current(); ok {
		v.Question = &current
	}
	return v
}
