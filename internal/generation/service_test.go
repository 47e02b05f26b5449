package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobfit-backend/internal/generatedresumes"
	"jobfit-backend/internal/llm"
	"jobfit-backend/internal/shared/docxtest"
	"jobfit-backend/internal/shared/storage/object/local"
	"jobfit-backend/internal/usage"
	"jobfit-backend/internal/users"
)

const goodAnswer = "```json\n" + `{"matchScore": 78, "resumeSummary": "Strong fit", "missingKeywords": ["gRPC"],
"insightsAndRecommendations": ["Mention latency wins"], "replacements": {"summary_bullet_1": "Built billing APIs in Go"}}` + "\n```"

type fixture struct {
	svc     *Service
	users   *users.MemoryRepo
	records *generatedresumes.MemoryRepo
	clock   *clock.Mock
	calls   []string
}

func newFixture(t *testing.T, gen func(model string) (string, error)) *fixture {
	t.Helper()
	f := &fixture{
		users:   users.NewMemoryRepo(),
		records: generatedresumes.NewMemoryRepo(),
		clock:   clock.NewMock(),
	}
	f.clock.Set(time.Date(2026, time.May, 4, 10, 0, 0, 0, time.UTC))
	gate := usage.NewGate(f.clock, time.UTC, usage.DefaultLimits())
	recordsSvc := generatedresumes.NewService(f.records, local.New(t.TempDir()), 5)
	recordsSvc.Clock = f.clock

	f.svc = &Service{
		Users:   f.users,
		Gate:    gate,
		Ledger:  usage.NewLedger(usage.NewMemoryStore(f.users), gate),
		Records: recordsSvc,
		AI: &llm.Fallback{
			Generator: llm.GeneratorFunc(func(ctx context.Context, model, prompt string) (string, error) {
				f.calls = append(f.calls, model)
				return gen(model)
			}),
			Models:         []string{"model-a", "model-b", "model-c"},
			RequestTimeout: time.Second,
			Budget:         5 * time.Second,
		},
		Clock: f.clock,
	}
	return f
}

func (f *fixture) seed(t *testing.T, u users.User) users.User {
	t.Helper()
	if u.ID == "" {
		u.ID = "user-1"
	}
	if u.Email == "" {
		u.Email = "jane@example.com"
	}
	created, err := f.users.Create(context.Background(), u)
	require.NoError(t, err)
	return created
}

func (f *fixture) recordCount(t *testing.T) int {
	t.Helper()
	recs, err := f.records.ListRecent(context.Background(), 100)
	require.NoError(t, err)
	return len(recs)
}

func alwaysOK(string) (string, error) { return goodAnswer, nil }

func template(t *testing.T) []byte {
	return docxtest.Simple(t, "Jane Doe", "{{summary_bullet_1}}")
}

func day(y int, m time.Month, d int) *time.Time {
	v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &v
}

func TestGenerateRejectsMissingInput(t *testing.T) {
	f := newFixture(t, alwaysOK)

	_, err := f.svc.Generate(context.Background(), Request{JobDescription: "Go engineer"})
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = f.svc.Generate(context.Background(), Request{File: template(t), JobDescription: "  "})
	assert.ErrorIs(t, err, ErrMissingInput)

	assert.Empty(t, f.calls, "no AI call on invalid input")
	assert.Zero(t, f.recordCount(t))
}

func TestGenerateScenarioAPlanLimit(t *testing.T) {
	f := newFixture(t, alwaysOK)
	f.seed(t, users.User{
		Plan:             users.PlanFree,
		HasFullAccess:    true,
		CreditsUsed:      5,
		DailyResumeLimit: 70,
		LastResumeDate:   day(2026, time.May, 4),
	})

	_, err := f.svc.Generate(context.Background(), Request{UserID: "user-1", File: template(t), JobDescription: "jd"})
	var denial *usage.Denial
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, usage.ReasonPlanLimit, denial.Reason)
	assert.Empty(t, f.calls)
	assert.Zero(t, f.recordCount(t))

	u, _ := f.users.GetByID(context.Background(), "user-1")
	assert.Equal(t, 5, u.CreditsUsed)
}

func TestGenerateScenarioBDailyLimit(t *testing.T) {
	f := newFixture(t, alwaysOK)
	f.seed(t, users.User{
		Plan:             users.PlanPro,
		HasFullAccess:    true,
		DailyResumeCount: 70,
		DailyResumeLimit: 70,
		LastResumeDate:   day(2026, time.May, 4),
	})

	_, err := f.svc.Generate(context.Background(), Request{UserID: "user-1", File: template(t), JobDescription: "jd"})
	var denial *usage.Denial
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, usage.ReasonDailyLimit, denial.Reason)
	assert.Zero(t, f.recordCount(t))
}

func TestGenerateRestrictedAccount(t *testing.T) {
	f := newFixture(t, alwaysOK)
	f.seed(t, users.User{Plan: users.PlanPro, HasFullAccess: false})

	_, err := f.svc.Generate(context.Background(), Request{UserID: "user-1", File: template(t), JobDescription: "jd"})
	var denial *usage.Denial
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, usage.ReasonRestricted, denial.Reason)
}

func TestGenerateScenarioCSecondModelAfterRollover(t *testing.T) {
	f := newFixture(t, func(model string) (string, error) {
		if model == "model-a" {
			return "", errors.New("HTTP 503: overloaded")
		}
		return goodAnswer, nil
	})
	f.seed(t, users.User{
		Name:             "Jane Doe",
		Plan:             users.PlanFree,
		HasFullAccess:    true,
		CreditsUsed:      1,
		DailyResumeCount: 3,
		DailyResumeLimit: 50,
		LastResumeDate:   day(2026, time.May, 3),
	})

	out, err := f.svc.Generate(context.Background(), Request{
		ID:             "gen-1",
		UserID:         "user-1",
		CompanyName:    "Acme Corp.",
		JobTitle:       "Sr. Go Engineer",
		JobDescription: "Go, Postgres, gRPC",
		File:           template(t),
		FileName:       "cv.docx",
	})
	require.NoError(t, err)
	assert.Equal(t, "model-b", out.Model)
	assert.Equal(t, []string{"model-a", "model-b"}, f.calls)
	assert.Equal(t, 78, out.Analysis.MatchScore)
	assert.Equal(t, "Jane_Doe_Acme_Corp__Sr__Go_Engineer_resume.docx", out.FileName)
	assert.Empty(t, out.Warnings)

	recs, err := f.records.ListByUser(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, generatedresumes.StatusSuccess, recs[0].Status)
	assert.Equal(t, 78, recs[0].MatchScore)
	assert.Equal(t, "jane@example.com", recs[0].UserEmail)

	u, err := f.users.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.DailyResumeCount)
	assert.Equal(t, 2, u.CreditsUsed)
	require.NotNil(t, u.LastResumeDate)
	assert.True(t, u.LastResumeDate.Equal(*day(2026, time.May, 4)))
}

func TestGenerateScenarioDAllModelsFail(t *testing.T) {
	f := newFixture(t, func(model string) (string, error) {
		return "", errors.New("HTTP 503: unavailable " + model)
	})
	f.seed(t, users.User{Plan: users.PlanFree, HasFullAccess: true, CreditsUsed: 2, DailyResumeCount: 1, LastResumeDate: day(2026, time.May, 4)})

	_, err := f.svc.Generate(context.Background(), Request{UserID: "user-1", File: template(t), JobDescription: "jd"})
	var aiErr *AIError
	require.ErrorAs(t, err, &aiErr)
	assert.Contains(t, aiErr.Err.Error(), "model-c")
	assert.Len(t, f.calls, 3)
	assert.Zero(t, f.recordCount(t))

	u, _ := f.users.GetByID(context.Background(), "user-1")
	assert.Equal(t, 2, u.CreditsUsed)
	assert.Equal(t, 1, u.DailyResumeCount)
}

func TestGenerateScenarioETemplatingFailureReturnsOriginal(t *testing.T) {
	f := newFixture(t, alwaysOK)
	f.seed(t, users.User{Plan: users.PlanPro, HasFullAccess: true})
	original := docxtest.Simple(t, "Summary {{summary_bullet_1")

	out, err := f.svc.Generate(context.Background(), Request{UserID: "user-1", File: original, FileName: "cv.docx", JobDescription: "jd"})
	require.NoError(t, err)
	assert.Equal(t, original, out.Document)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "original document")

	recs, err := f.records.ListByUser(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, generatedresumes.StatusSuccess, recs[0].Status)
	assert.Equal(t, 78, recs[0].MatchScore)
}

func TestGenerateAnonymousUsesDefaults(t *testing.T) {
	f := newFixture(t, alwaysOK)

	out, err := f.svc.Generate(context.Background(), Request{File: template(t), JobDescription: "jd"})
	require.NoError(t, err)
	assert.Equal(t, "User_ResumeLab_Candidate_Application_resume.docx", out.FileName)

	recs, err := f.records.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "", recs[0].UserID)
	assert.Equal(t, "Anonymous", recs[0].UserEmail)
	assert.Equal(t, DefaultCompanyName, recs[0].CompanyName)
	assert.Equal(t, DefaultJobTitle, recs[0].JobTitle)
}

func TestGenerateExtractionFallbackIsAWarning(t *testing.T) {
	var prompts []string
	f := newFixture(t, alwaysOK)
	f.svc.AI = &llm.Fallback{
		Generator: llm.GeneratorFunc(func(ctx context.Context, model, prompt string) (string, error) {
			prompts = append(prompts, prompt)
			return goodAnswer, nil
		}),
		Models: []string{"only"},
	}

	out, err := f.svc.Generate(context.Background(), Request{File: []byte("not a document"), FileName: "cv.docx", JobDescription: "jd"})
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Could not extract text. Analyze based on placeholders if present.")
	assert.Len(t, out.Warnings, 2, "extraction and templating both degrade")
	assert.Equal(t, []byte("not a document"), out.Document)
}

func TestGenerateLateGateDenialWritesNothing(t *testing.T) {
	f := newFixture(t, alwaysOK)
	f.seed(t, users.User{Plan: users.PlanFree, HasFullAccess: true, CreditsUsed: 4, LastResumeDate: day(2026, time.May, 4)})
	f.svc.AI = &llm.Fallback{
		Generator: llm.GeneratorFunc(func(ctx context.Context, model, prompt string) (string, error) {
			// Another request consumes the last credit while this one waits on the model.
			_, err := f.svc.Ledger.Increment(ctx, "user-1")
			require.NoError(t, err)
			return goodAnswer, nil
		}),
		Models: []string{"only"},
	}

	_, err := f.svc.Generate(context.Background(), Request{UserID: "user-1", File: template(t), JobDescription: "jd"})
	var denial *usage.Denial
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, usage.ReasonPlanLimit, denial.Reason)
	assert.Zero(t, f.recordCount(t))

	u, _ := f.users.GetByID(context.Background(), "user-1")
	assert.Equal(t, 5, u.CreditsUsed)
}

func TestGenerateNCreditsAccumulate(t *testing.T) {
	f := newFixture(t, alwaysOK)
	f.seed(t, users.User{Plan: users.PlanPro, HasFullAccess: true, CreditsUsed: 10, LastResumeDate: day(2026, time.May, 4), DailyResumeCount: 2})

	for i := 0; i < 4; i++ {
		_, err := f.svc.Generate(context.Background(), Request{UserID: "user-1", File: template(t), JobDescription: "jd"})
		require.NoError(t, err)
	}
	u, _ := f.users.GetByID(context.Background(), "user-1")
	assert.Equal(t, 14, u.CreditsUsed)
	assert.Equal(t, 6, u.DailyResumeCount)
	assert.Equal(t, 4, f.recordCount(t))
}

type failingRecords struct{}

func (failingRecords) Save(context.Context, generatedresumes.Record, []byte) (generatedresumes.Record, error) {
	return generatedresumes.Record{}, errors.New("bucket unavailable")
}

func TestGenerateRecordFailureDoesNotChargeUsage(t *testing.T) {
	f := newFixture(t, alwaysOK)
	f.svc.Records = failingRecords{}
	f.seed(t, users.User{Plan: users.PlanFree, HasFullAccess: true, CreditsUsed: 1, DailyResumeCount: 1, LastResumeDate: day(2026, time.May, 4)})

	out, err := f.svc.Generate(context.Background(), Request{UserID: "user-1", File: template(t), JobDescription: "jd"})
	require.NoError(t, err)
	assert.Contains(t, out.Warnings, "The generated resume could not be saved to your history.")
	assert.Empty(t, out.RecordID)

	u, err := f.users.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.CreditsUsed)
	assert.Equal(t, 1, u.DailyResumeCount)
}

func TestGenerateUnknownAccountIsRejected(t *testing.T) {
	f := newFixture(t, alwaysOK)

	_, err := f.svc.Generate(context.Background(), Request{UserID: "deleted-user", File: template(t), JobDescription: "jd"})
	assert.ErrorIs(t, err, ErrUnknownAccount)
	assert.Empty(t, f.calls)
	assert.Zero(t, f.recordCount(t))
}
