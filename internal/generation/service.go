package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"jobfit-backend/internal/extract"
	"jobfit-backend/internal/generatedresumes"
	"jobfit-backend/internal/llm"
	"jobfit-backend/internal/shared/metrics"
	"jobfit-backend/internal/shared/storage/object"
	"jobfit-backend/internal/shared/telemetry"
	"jobfit-backend/internal/shared/util"
	"jobfit-backend/internal/usage"
	"jobfit-backend/internal/users"
	"jobfit-backend/resume/render"
)

const (
	DefaultCompanyName = "ResumeLab"
	DefaultJobTitle    = "Candidate Application"

	anonymousEmail = "Anonymous"
	anonymousName  = "User"
	pdfMIME        = "application/pdf"
)

// ErrMissingInput is returned before any AI call when the template or job description is absent.
var ErrMissingInput = errors.New("missing job description or resume file")

// ErrUnknownAccount is returned when the session names an account that no longer exists.
var ErrUnknownAccount = errors.New("account not found")

// AIError reports that every configured model failed.
type AIError struct {
	Err error
}

func (e *AIError) Error() string { return "AI Error: " + e.Err.Error() }
func (e *AIError) Unwrap() error { return e.Err }

// UserLookup resolves the acting account.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (users.User, error)
}

// RecordSaver persists the generated document and its record.
type RecordSaver interface {
	Save(ctx context.Context, rec generatedresumes.Record, doc []byte) (generatedresumes.Record, error)
}

// Analyzer runs a prompt through the model fallback list.
type Analyzer interface {
	Run(ctx context.Context, prompt string) (llm.Result, error)
}

// Request is one generation attempt. UserID is empty for anonymous callers.
type Request struct {
	ID             string
	UserID         string
	CompanyName    string
	JobTitle       string
	JobDescription string
	File           []byte
	FileName       string
	FileMIME       string
}

// Outcome is a successful generation.
type Outcome struct {
	Analysis llm.Analysis
	Model    string
	Document []byte
	FileName string
	RecordID string
	Warnings []string
}

// Service runs the generation workflow:
// validate, extract, prompt, call AI, parse, fill template, gate, record, charge.
// It only fails on missing input, exhausted AI models or an access denial.
type Service struct {
	Users          UserLookup
	Gate           *usage.Gate
	Ledger         *usage.Ledger
	Records        RecordSaver
	AI             Analyzer
	Clock          clock.Clock
	MaxResumeChars int
}

// Generate executes one request end to end.
func (s *Service) Generate(ctx context.Context, req Request) (Outcome, error) {
	started := s.now()
	out, outcome, err := s.generate(ctx, req)
	metrics.IncGeneration(outcome)
	metrics.ObserveGenerationDuration(s.now().Sub(started))
	fields := map[string]any{
		"generation_id": req.ID,
		"user_id":       req.UserID,
		"outcome":       outcome,
		"duration_ms":   s.now().Sub(started).Milliseconds(),
		"warnings":      len(out.Warnings),
	}
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Warn("generation.finished", fields)
	} else {
		fields["model"] = out.Model
		telemetry.Info("generation.finished", fields)
	}
	return out, err
}

func (s *Service) generate(ctx context.Context, req Request) (Outcome, string, error) {
	req = withDefaults(req)
	if len(req.File) == 0 || strings.TrimSpace(req.JobDescription) == "" {
		return Outcome{}, "invalid", ErrMissingInput
	}

	// Early gate: refuse before spending an AI call.
	if _, err := s.gate(ctx, req.UserID); err != nil {
		return Outcome{}, outcomeFor(err), err
	}

	var warnings []string
	text, kind, err := extract.TextOrFallback(ctx, req.File, req.FileName, req.FileMIME)
	if err != nil {
		s.degrade("extract", req, err)
		warnings = append(warnings, "Resume text could not be extracted; the analysis relied on template placeholders only.")
	}

	prompt := llm.BuildPrompt(llm.PromptInput{
		JobDescription: req.JobDescription,
		ResumeText:     text,
		FileName:       req.FileName,
		MaxResumeChars: s.MaxResumeChars,
	})

	result, err := s.AI.Run(ctx, prompt)
	if err != nil {
		return Outcome{}, "ai_error", &AIError{Err: err}
	}

	document, mimeType, fillWarnings := s.fill(req, kind, result.Analysis.Replacements)
	warnings = append(warnings, fillWarnings...)

	// Late gate: limits may have moved while the AI call was in flight.
	user, err := s.gate(ctx, req.UserID)
	if err != nil {
		return Outcome{}, outcomeFor(err), err
	}

	if user != nil {
		if err := s.Ledger.Rollover(ctx, *user); err != nil {
			telemetry.Warn("generation.rollover_failed", map[string]any{
				"generation_id": req.ID,
				"user_id":       user.ID,
				"error":         err,
			})
		}
	}

	fileName := outputFileName(user, req, kind)
	rec := generatedresumes.Record{
		ID:           req.ID,
		UserEmail:    anonymousEmail,
		JobTitle:     req.JobTitle,
		CompanyName:  req.CompanyName,
		MatchScore:   result.Analysis.MatchScore,
		OriginalName: req.FileName,
		FileName:     fileName,
		Status:       generatedresumes.StatusSuccess,
		MimeType:     mimeType,
		Warnings:     append([]string(nil), warnings...),
	}
	if user != nil {
		rec.UserID = user.ID
		rec.UserEmail = user.Email
	}
	saved, saveErr := s.Records.Save(ctx, rec, document)
	if saveErr != nil {
		telemetry.Error("generation.record_failed", map[string]any{
			"generation_id": req.ID,
			"user_id":       req.UserID,
			"error":         saveErr,
		})
		metrics.IncDegradation("record")
		warnings = append(warnings, "The generated resume could not be saved to your history.")
	}

	// Usage is only charged for a generation that made it into history.
	if user != nil && saveErr == nil {
		if _, err := s.Ledger.Increment(ctx, user.ID); err != nil {
			telemetry.Error("generation.quota_update_failed", map[string]any{
				"generation_id": req.ID,
				"user_id":       user.ID,
				"error":         err,
				"limit_reached": errors.Is(err, usage.ErrLimitReached),
			})
			metrics.IncDegradation("quota_update")
			warnings = append(warnings, "Usage could not be recorded for this generation.")
		}
	}

	return Outcome{
		Analysis: result.Analysis,
		Model:    result.Model,
		Document: document,
		FileName: fileName,
		RecordID: saved.ID,
		Warnings: nonNil(warnings),
	}, "success", nil
}

// gate loads the caller and runs the access gate. A session whose account
// no longer exists is rejected with ErrUnknownAccount.
func (s *Service) gate(ctx context.Context, userID string) (*users.User, error) {
	if userID == "" {
		return nil, nil
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrUnknownAccount
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := s.Gate.Evaluate(&u); err != nil {
		var denial *usage.Denial
		if errors.As(err, &denial) {
			metrics.IncGateDenial(string(denial.Reason))
		}
		return nil, err
	}
	return &u, nil
}

// fill applies the replacements, falling back to the uploaded bytes on any failure.
func (s *Service) fill(req Request, kind extract.Kind, values map[string]string) ([]byte, string, []string) {
	if kind == extract.KindPDF {
		s.degrade("template", req, errors.New("pdf uploads cannot be templated"))
		return req.File, pdfMIME, []string{"PDF uploads are returned unchanged; upload a DOCX template to have placeholders filled."}
	}
	res, err := render.Fill(req.File, values)
	if err != nil {
		s.degrade("template", req, err)
		return req.File, object.DocxMIME, []string{"Template placeholders could not be filled; the original document was returned."}
	}
	if len(res.Unresolved) > 0 {
		telemetry.Info("generation.placeholders_unresolved", map[string]any{
			"generation_id": req.ID,
			"names":         strings.Join(res.Unresolved, ","),
		})
		return res.Document, object.DocxMIME, []string{"No content was generated for placeholders: " + strings.Join(res.Unresolved, ", ")}
	}
	return res.Document, object.DocxMIME, nil
}

func (s *Service) degrade(stage string, req Request, err error) {
	metrics.IncDegradation(stage)
	telemetry.Warn("generation."+stage+"_degraded", map[string]any{
		"generation_id": req.ID,
		"user_id":       req.UserID,
		"file_name":     req.FileName,
		"error":         err,
	})
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func withDefaults(req Request) Request {
	if strings.TrimSpace(req.CompanyName) == "" {
		req.CompanyName = DefaultCompanyName
	}
	if strings.TrimSpace(req.JobTitle) == "" {
		req.JobTitle = DefaultJobTitle
	}
	return req
}

func outputFileName(u *users.User, req Request, kind extract.Kind) string {
	name := anonymousName
	if u != nil {
		name = u.DisplayName()
	}
	ext := ".docx"
	if kind == extract.KindPDF {
		ext = ".pdf"
	}
	return fmt.Sprintf("%s_%s_%s_resume%s",
		util.SlugComponent(name),
		util.SlugComponent(req.CompanyName),
		util.SlugComponent(req.JobTitle),
		ext,
	)
}

func outcomeFor(err error) string {
	var denial *usage.Denial
	if errors.As(err, &denial) {
		return "denied"
	}
	return "error"
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
