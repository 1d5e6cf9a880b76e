package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/aula-backend/internal/data/repos"
	"github.com/yungbote/aula-backend/internal/data/repos/testutil"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/modules/prompts"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/platform/llm"
)

type fakeProvider struct {
	mu       sync.Mutex
	name     string
	text     string
	err      error
	requests []llm.Request
	chats    [][]llm.Message
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Generate(_ context.Context, req llm.Request) (*llm.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Completion{Text: p.text, Model: p.name + "-test", TokensUsed: 42}, nil
}

func (p *fakeProvider) Chat(_ context.Context, messages []llm.Message) (*llm.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chats = append(p.chats, append([]llm.Message(nil), messages...))
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Completion{Text: p.text, Model: p.name + "-test"}, nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests) + len(p.chats)
}

// env wires every service over one in-memory database, the way app.go does.
type env struct {
	db     *gorm.DB
	openai *fakeProvider

	users       repos.UserRepo
	teachers    repos.TeacherProfileRepo
	students    repos.StudentProfileRepo
	grades      repos.GradeRepo
	enrollments repos.EnrollmentRepo
	codes       repos.InvitationCodeRepo
	history     repos.CreditHistoryRepo
	activityRow repos.ActivityRepo

	credits      CreditService
	ai           AIService
	chatStore    ChatStore
	activities   ActivityService
	auth         AuthService
	invitations  InvitationService
	institutions InstitutionService
	gradeSvc     GradeService
	admin        UserAdminService
	chat         ChatService
	export       ExportService
}

var testCosts = map[types.Provider]int{
	types.ProviderOpenAI: 10,
	types.ProviderGemini: 5,
	types.ProviderOllama: 2,
}

const testSignupCredits = 100

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	catalog, err := prompts.Default()
	if err != nil {
		t.Fatalf("prompts.Default: %v", err)
	}

	e := &env{
		db:          db,
		openai:      &fakeProvider{name: "openai", text: `{"title":"Fractions","questions":[]}`},
		users:       repos.NewUserRepo(db, log),
		teachers:    repos.NewTeacherProfileRepo(db, log),
		students:    repos.NewStudentProfileRepo(db, log),
		grades:      repos.NewGradeRepo(db, log),
		enrollments: repos.NewEnrollmentRepo(db, log),
		codes:       repos.NewInvitationCodeRepo(db, log),
		history:     repos.NewCreditHistoryRepo(db, log),
		activityRow: repos.NewActivityRepo(db, log),
	}
	institutions := repos.NewInstitutionRepo(db, log)

	e.credits = NewCreditService(db, log, e.users, e.history, testCosts)
	e.ai = NewAIService(log, map[types.Provider]llm.Provider{types.ProviderOpenAI: e.openai}, catalog, 5*time.Second)
	e.chatStore = NewMemoryChatStore(time.Hour, 20)
	e.activities = NewActivityService(db, log, e.activityRow, e.credits, e.ai, e.chatStore)
	e.auth = NewAuthService(db, log, e.users, e.teachers, e.students, institutions, e.grades, e.credits, testSignupCredits, "test-secret", time.Hour)
	e.invitations = NewInvitationService(db, log, e.codes, e.grades, e.users, e.teachers, e.students, e.enrollments, e.credits, e.auth, testSignupCredits)
	e.institutions = NewInstitutionService(log, institutions, e.grades, e.users, e.enrollments)
	e.gradeSvc = NewGradeService(db, log, e.grades, institutions, e.users, e.teachers, e.students, e.enrollments, e.codes)
	e.admin = NewUserAdminService(db, log, e.users, e.teachers, e.students, institutions, e.grades, e.enrollments, e.activityRow, e.history, e.codes, e.credits, testSignupCredits)
	e.chat = NewChatService(log, e.activities, e.ai, e.chatStore)
	e.export = NewExportService(log, e.activities)
	return e
}

func actorOf(u *types.User) Actor { return Actor{UserID: u.ID, Role: u.Role} }

func (e *env) balance(t *testing.T, u *types.User) int {
	t.Helper()
	var row types.User
	if err := e.db.First(&row, "id = ?", u.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return row.Credits
}

func (e *env) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := e.db.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func dbcOf(ctx context.Context) dbctx.Context { return dbctx.Context{Ctx: ctx} }

func (e *env) usedCount(t *testing.T, codeID uuid.UUID) int {
	t.Helper()
	var row types.InvitationCode
	if err := e.db.First(&row, "id = ?", codeID).Error; err != nil {
		t.Fatalf("load code: %v", err)
	}
	return row.UsedCount
}
