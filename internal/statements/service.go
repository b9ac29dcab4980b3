package statements

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"budget-backend/internal/extract"
	"budget-backend/internal/llm"
	"budget-backend/internal/shared/apperr"
	"budget-backend/internal/shared/metrics"
	"budget-backend/internal/shared/storage/object"
	"budget-backend/internal/shared/telemetry"
)

// TrendRefresher rebuilds the user's overall analysis from their statements.
type TrendRefresher interface {
	Refresh(ctx context.Context, userID string, items []StatementAnalysis, income decimal.Decimal) error
}

// IncomeSource provides the income trends are normalized against.
type IncomeSource interface {
	Income(ctx context.Context, userID string) (decimal.Decimal, error)
}

// Options configures document analysis.
type Options struct {
	MaxDocumentBytes int64
	InlineDocuments  bool
	MaxOutputTokens  int
	Temperature      float64
}

// Service coordinates statement analysis persistence and trend refreshes.
type Service struct {
	Repo   Repo
	Trends TrendRefresher
	Income IncomeSource
	Store  object.ObjectStore
	LLM    llm.Client
	Opts   Options

	now   func() time.Time
	newID func() string
}

// NewService constructs a Service.
func NewService(repo Repo, trends TrendRefresher, income IncomeSource, store object.ObjectStore, client llm.Client, opts Options) *Service {
	return &Service{
		Repo:   repo,
		Trends: trends,
		Income: income,
		Store:  store,
		LLM:    client,
		Opts:   opts,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Input is a manually entered or corrected statement analysis.
type Input struct {
	StatementID       string           `json:"statementId"`
	AnalysisDate      string           `json:"analysisDate"`
	CategoryBreakdown []CategoryAmount `json:"categoryBreakdown"`
}

func (in Input) validate() (Input, error) {
	in.StatementID = strings.TrimSpace(in.StatementID)
	in.AnalysisDate = strings.TrimSpace(in.AnalysisDate)
	if in.AnalysisDate == "" {
		return Input{}, apperr.Invalid("analysisDate", "is required")
	}
	if _, ok := ParsePeriod(in.AnalysisDate); !ok {
		return Input{}, apperr.Invalid("analysisDate", "is not a recognizable month")
	}
	breakdown, err := ValidateBreakdown(in.CategoryBreakdown)
	if err != nil {
		return Input{}, err
	}
	in.CategoryBreakdown = breakdown
	return in, nil
}

// Create stores a new statement analysis and refreshes trends.
func (s *Service) Create(ctx context.Context, userID string, in Input) (StatementAnalysis, error) {
	if strings.TrimSpace(userID) == "" {
		return StatementAnalysis{}, apperr.Invalid("userId", "is required")
	}
	in, err := in.validate()
	if err != nil {
		return StatementAnalysis{}, err
	}
	if in.StatementID == "" {
		in.StatementID = s.newID()
	}
	return s.create(ctx, userID, in, "")
}

func (s *Service) create(ctx context.Context, userID string, in Input, documentKey string) (StatementAnalysis, error) {
	now := s.now().UTC()
	sa := StatementAnalysis{
		ID:                s.newID(),
		UserID:            userID,
		StatementID:       in.StatementID,
		AnalysisDate:      in.AnalysisDate,
		CategoryBreakdown: in.CategoryBreakdown,
		DocumentKey:       documentKey,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Repo.Create(ctx, sa); err != nil {
		return StatementAnalysis{}, fmt.Errorf("create statement analysis: %w", err)
	}
	s.refresh(ctx, userID)
	return sa, nil
}

// Update applies a corrective update to an existing statement analysis.
func (s *Service) Update(ctx context.Context, userID, id string, in Input) (StatementAnalysis, error) {
	in, err := in.validate()
	if err != nil {
		return StatementAnalysis{}, err
	}
	sa, err := s.Repo.GetByID(ctx, userID, id)
	if err != nil {
		return StatementAnalysis{}, err
	}
	sa.AnalysisDate = in.AnalysisDate
	sa.CategoryBreakdown = in.CategoryBreakdown
	sa.UpdatedAt = s.now().UTC()
	if err := s.Repo.Update(ctx, sa); err != nil {
		return StatementAnalysis{}, err
	}
	s.refresh(ctx, userID)
	return sa, nil
}

// Delete removes a statement analysis and its uploaded document.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	sa, err := s.Repo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	if sa.DocumentKey != "" && s.Store != nil {
		if err := s.Store.Delete(ctx, sa.DocumentKey); err != nil {
			telemetry.Warn("statements.document_delete_failed", map[string]any{
				"userId": userID,
				"id":     id,
				"error":  apperr.Sanitize(err),
			})
		}
	}
	s.refresh(ctx, userID)
	return nil
}

// List returns the user's statement analyses, oldest first.
func (s *Service) List(ctx context.Context, userID string) ([]StatementAnalysis, error) {
	return s.Repo.ListByUser(ctx, userID)
}

// RefreshTrends re-aggregates the user's statements.
func (s *Service) RefreshTrends(ctx context.Context, userID string) error {
	if s.Trends == nil {
		return nil
	}
	items, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list statements user=%s: %w", userID, err)
	}
	income := decimal.Zero
	if s.Income != nil {
		income, err = s.Income.Income(ctx, userID)
		if err != nil {
			return fmt.Errorf("load income user=%s: %w", userID, err)
		}
	}
	return s.Trends.Refresh(ctx, userID, items, income)
}

// refresh keeps the mutation successful when re-aggregation fails; the
// scheduled worker repairs the overall analysis later.
func (s *Service) refresh(ctx context.Context, userID string) {
	if err := s.RefreshTrends(ctx, userID); err != nil {
		telemetry.Warn("statements.trend_refresh_failed", map[string]any{
			"userId": userID,
			"error":  apperr.Sanitize(err),
		})
	}
}

// AnalyzeDocument stores an uploaded statement, asks the generation service for
// its category breakdown and records the result.
func (s *Service) AnalyzeDocument(ctx context.Context, userID, statementID, fileName string, data []byte) (StatementAnalysis, error) {
	const op = "analyze statement"
	if strings.TrimSpace(userID) == "" {
		return StatementAnalysis{}, apperr.Invalid("userId", "is required")
	}
	if len(data) == 0 {
		return StatementAnalysis{}, apperr.Invalid("file", "is required")
	}
	if s.LLM == nil {
		return StatementAnalysis{}, apperr.External(op, llm.ErrNotImplemented)
	}
	if err := llm.CheckDocumentSize(&llm.Document{Data: data}, s.Opts.MaxDocumentBytes); err != nil {
		return StatementAnalysis{}, apperr.SizeLimit(op, err)
	}

	mimeType := http.DetectContentType(data)
	documentKey := ""
	if s.Store != nil {
		stored, err := s.Store.Save(ctx, userID, fileName, bytes.NewReader(data))
		if err != nil {
			return StatementAnalysis{}, fmt.Errorf("store statement: %w", err)
		}
		documentKey = stored.Key
		mimeType = stored.MimeType
	}

	sa, err := s.analyzeStored(ctx, userID, statementID, fileName, mimeType, data, documentKey)
	if err != nil {
		if documentKey != "" {
			if delErr := s.Store.Delete(ctx, documentKey); delErr != nil {
				telemetry.Warn("statements.document_cleanup_failed", map[string]any{
					"userId": userID,
					"key":    documentKey,
					"error":  apperr.Sanitize(delErr),
				})
			}
		}
		telemetry.Warn("statements.analyze_failed", map[string]any{
			"userId": userID,
			"code":   apperr.Code(err),
			"error":  apperr.Sanitize(err),
		})
		return StatementAnalysis{}, err
	}
	metrics.IncStatementsAnalyzed()
	telemetry.Info("statements.analyzed", map[string]any{
		"userId":     userID,
		"id":         sa.ID,
		"period":     sa.AnalysisDate,
		"categories": len(sa.CategoryBreakdown),
	})
	return sa, nil
}

func (s *Service) analyzeStored(ctx context.Context, userID, statementID, fileName, mimeType string, data []byte, documentKey string) (StatementAnalysis, error) {
	const op = "analyze statement"
	req := llm.Request{
		System:          llm.SystemJSON,
		MaxOutputTokens: s.Opts.MaxOutputTokens,
		Temperature:     s.Opts.Temperature,
		JSONOutput:      true,
	}
	promptData := struct{ Text string }{}
	if s.Opts.InlineDocuments {
		req.Document = &llm.Document{Name: fileName, MimeType: mimeType, Data: data}
	} else {
		text, err := extract.Text(ctx, data, mimeType, fileName)
		if err != nil {
			if errors.Is(err, extract.ErrUnsupported) {
				return StatementAnalysis{}, apperr.Invalid("file", err.Error())
			}
			return StatementAnalysis{}, fmt.Errorf("extract statement text: %w", err)
		}
		promptData.Text = text
	}
	prompt, err := llm.RenderPrompt(llm.PromptStatement, promptData)
	if err != nil {
		return StatementAnalysis{}, err
	}
	req.Prompt = prompt

	raw, err := s.LLM.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, llm.ErrDocumentTooLarge) {
			return StatementAnalysis{}, apperr.SizeLimit(op, err)
		}
		return StatementAnalysis{}, apperr.External(op, err)
	}

	breakdown, err := ParseBreakdown(raw)
	if err != nil {
		return StatementAnalysis{}, err
	}
	period := breakdown.StatementPeriod
	if _, ok := ParsePeriod(period); !ok {
		if period != "" {
			telemetry.Warn("statements.period_unreadable", map[string]any{
				"userId": userID,
				"period": period,
			})
		}
		period = s.now().UTC().Format(MonthLabel)
	}
	statementID = strings.TrimSpace(statementID)
	if statementID == "" {
		statementID = s.newID()
	}
	return s.create(ctx, userID, Input{
		StatementID:       statementID,
		AnalysisDate:      period,
		CategoryBreakdown: breakdown.CategoryBreakdown,
	}, documentKey)
}
