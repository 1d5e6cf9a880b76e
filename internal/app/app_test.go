package app

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/aula-backend/internal/data/repos/testutil"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/platform/llm"
)

type stubProvider struct {
	text string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Generate(context.Context, llm.Request) (*llm.Completion, error) {
	return &llm.Completion{Text: p.text, Model: "stub-1", TokensUsed: 7}, nil
}

func (p *stubProvider) Chat(context.Context, []llm.Message) (*llm.Completion, error) {
	return &llm.Completion{Text: "Hola, soy tu tutor.", Model: "stub-1"}, nil
}

type harness struct {
	t    *testing.T
	app  *App
	stub *stubProvider
}

func newHarness(t *testing.T, rateMax int) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := Config{
		JWTSecretKey:   "test-secret",
		AccessTokenTTL: time.Hour,
		SignupCredits:  100,
		CreditCosts: map[types.Provider]int{
			types.ProviderOpenAI: 10,
			types.ProviderGemini: 5,
			types.ProviderOllama: 2,
		},
		AITimeout:       5 * time.Second,
		RateLimitWindow: time.Hour,
		RateLimitMax:    rateMax,
		ChatHistoryTTL:  time.Hour,
		ChatMaxMessages: 20,
	}
	stub := &stubProvider{text: `{"title":"Fracciones","questions":[{"question":"1/2 + 1/2?","options":["1","2"],"answer":"1"}]}`}
	clients := Clients{Providers: map[types.Provider]llm.Provider{types.ProviderOpenAI: stub}}
	a, err := assemble(testutil.Logger(t), testutil.DB(t), cfg, clients)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return &harness{t: t, app: a, stub: stub}
}

type reply struct {
	code   int
	header http.Header
	body   []byte
}

func (r reply) decode(t *testing.T, dst any) {
	t.Helper()
	if err := json.Unmarshal(r.body, dst); err != nil {
		t.Fatalf("decode %s: %v", r.body, err)
	}
}

func (r reply) errorCode(t *testing.T) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	r.decode(t, &env)
	return env.Error.Code
}

func (h *harness) do(method, path, token string, body any) reply {
	h.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.app.Router.ServeHTTP(rec, req)
	return reply{code: rec.Code, header: rec.Header(), body: rec.Body.Bytes()}
}

func (h *harness) expect(r reply, want int) {
	h.t.Helper()
	if r.code != want {
		h.t.Fatalf("status: want=%d got=%d body=%s", want, r.code, r.body)
	}
}

func (h *harness) adminToken() string {
	h.t.Helper()
	admin := testutil.SeedUser(h.t, h.app.DB, types.RoleAdmin, "admin@aula.test", 0)
	token, _, err := h.app.Services.Auth.IssueToken(admin)
	if err != nil {
		h.t.Fatalf("issue token: %v", err)
	}
	return token
}

func TestHealth(t *testing.T) {
	h := newHarness(t, 0)
	for _, path := range []string{"/health", "/api/health"} {
		r := h.do(http.MethodGet, path, "", nil)
		h.expect(r, http.StatusOK)
		var body struct {
			Status    string `json:"status"`
			Timestamp string `json:"timestamp"`
		}
		r.decode(t, &body)
		if body.Status != "ok" {
			t.Fatalf("%s status: want=ok got=%s", path, body.Status)
		}
		if _, err := time.Parse(time.RFC3339, body.Timestamp); err != nil {
			t.Fatalf("%s timestamp %q: %v", path, body.Timestamp, err)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t, 0)
	r := h.do(http.MethodGet, "/api/credits/balance", "", nil)
	h.expect(r, http.StatusUnauthorized)
	if got := r.errorCode(t); got != "missing_token" {
		t.Fatalf("code: want=missing_token got=%s", got)
	}
	r = h.do(http.MethodGet, "/api/credits/balance", "garbage", nil)
	h.expect(r, http.StatusUnauthorized)
	if got := r.errorCode(t); got != "invalid_token" {
		t.Fatalf("code: want=invalid_token got=%s", got)
	}
}

// A school onboards a teacher, the teacher invites one student and then
// generates and exports a quiz, all over the public API.
func TestEnrollmentAndGenerationOverHTTP(t *testing.T) {
	h := newHarness(t, 0)
	admin := h.adminToken()

	r := h.do(http.MethodPost, "/api/institutions", admin, map[string]any{"name": "Colegio X", "code": "cx"})
	h.expect(r, http.StatusCreated)
	var inst struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	}
	r.decode(t, &inst)
	if inst.Code != "CX" {
		t.Fatalf("institution code: want=CX got=%s", inst.Code)
	}

	r = h.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "Profe@Aula.test", "password": "secret1", "firstName": "Ana", "lastName": "Ruiz",
		"role": "TEACHER", "institutionId": inst.ID,
	})
	h.expect(r, http.StatusCreated)
	var teacher struct {
		Token string `json:"token"`
		User  struct {
			Email   string `json:"email"`
			Credits int    `json:"credits"`
		} `json:"user"`
	}
	r.decode(t, &teacher)
	if teacher.User.Email != "profe@aula.test" || teacher.User.Credits != 100 {
		t.Fatalf("teacher: got=%+v", teacher.User)
	}

	r = h.do(http.MethodPost, "/api/grades", teacher.Token, map[string]any{"name": "5A", "level": "5"})
	h.expect(r, http.StatusCreated)
	var grade struct {
		ID string `json:"id"`
	}
	r.decode(t, &grade)

	r = h.do(http.MethodPost, "/api/invitations/generate", teacher.Token, map[string]any{"gradeId": grade.ID, "maxUses": 1})
	h.expect(r, http.StatusCreated)
	var code struct {
		Code   string `json:"code"`
		Status string `json:"status"`
	}
	r.decode(t, &code)
	if len(code.Code) != 8 || code.Status != "ACTIVE" {
		t.Fatalf("code: got=%+v", code)
	}

	r = h.do(http.MethodPost, "/api/invitations/validate", "", map[string]any{"code": strings.ToLower(code.Code)})
	h.expect(r, http.StatusOK)
	var v struct {
		Valid bool `json:"valid"`
	}
	r.decode(t, &v)
	if !v.Valid {
		t.Fatalf("validate: want valid")
	}

	use := map[string]any{"code": code.Code, "email": "alumno@aula.test", "password": "secret1", "firstName": "Luis", "lastName": "Paz"}
	r = h.do(http.MethodPost, "/api/invitations/use", "", use)
	h.expect(r, http.StatusCreated)
	var student struct {
		Token string `json:"token"`
	}
	r.decode(t, &student)

	use["email"] = "otro@aula.test"
	r = h.do(http.MethodPost, "/api/invitations/use", "", use)
	h.expect(r, http.StatusBadRequest)
	if got := r.errorCode(t); got != "code_depleted" {
		t.Fatalf("second use: want=code_depleted got=%s", got)
	}

	r = h.do(http.MethodPost, "/api/activities/generate", student.Token, map[string]any{
		"instruction": "fractions", "type": "QUIZ", "provider": "OPENAI",
	})
	h.expect(r, http.StatusForbidden)

	r = h.do(http.MethodPost, "/api/activities/generate", teacher.Token, map[string]any{
		"instruction": "Quiz de fracciones", "type": "QUIZ", "provider": "OPENAI", "visibility": "PUBLIC",
	})
	h.expect(r, http.StatusCreated)
	var gen struct {
		Activity struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"activity"`
		CreditsUsed      int `json:"creditsUsed"`
		CreditsRemaining int `json:"creditsRemaining"`
	}
	r.decode(t, &gen)
	if gen.CreditsUsed != 10 || gen.CreditsRemaining != 90 {
		t.Fatalf("credits: used=%d remaining=%d", gen.CreditsUsed, gen.CreditsRemaining)
	}

	r = h.do(http.MethodGet, "/api/credits/balance", teacher.Token, nil)
	h.expect(r, http.StatusOK)
	var bal struct {
		Credits int `json:"credits"`
	}
	r.decode(t, &bal)
	if bal.Credits != 90 {
		t.Fatalf("balance: want=90 got=%d", bal.Credits)
	}

	r = h.do(http.MethodGet, "/api/export/"+gen.Activity.ID+"/pdf", student.Token, nil)
	h.expect(r, http.StatusOK)
	if ct := r.header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type: want=application/pdf got=%s", ct)
	}
	if cd := r.header.Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, ".pdf") {
		t.Fatalf("content disposition: got=%s", cd)
	}

	r = h.do(http.MethodGet, "/api/export/"+gen.Activity.ID+"/odt", teacher.Token, nil)
	h.expect(r, http.StatusBadRequest)

	r = h.do(http.MethodPost, "/api/credits/add", teacher.Token, map[string]any{"userId": grade.ID, "amount": 5})
	h.expect(r, http.StatusForbidden)
}

func TestGenerateMultipartUpload(t *testing.T) {
	h := newHarness(t, 0)
	teacher := testutil.SeedUser(t, h.app.DB, types.RoleTeacher, "t@aula.test", 50)
	token, _, err := h.app.Services.Auth.IssueToken(teacher)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("instruction", "Resume el documento")
	_ = mw.WriteField("type", "SUMMARY")
	_ = mw.WriteField("provider", "OPENAI")
	fw, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write([]byte("Las fracciones representan partes de un todo."))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/activities/generate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.app.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var out struct {
		Activity struct {
			SourceFileName string `json:"sourceFileName"`
		} `json:"activity"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Activity.SourceFileName != "notes.txt" {
		t.Fatalf("source file: want=notes.txt got=%q", out.Activity.SourceFileName)
	}
}

func TestInsufficientCreditsIs402(t *testing.T) {
	h := newHarness(t, 0)
	teacher := testutil.SeedUser(t, h.app.DB, types.RoleTeacher, "poor@aula.test", 5)
	token, _, _ := h.app.Services.Auth.IssueToken(teacher)

	r := h.do(http.MethodPost, "/api/activities/generate", token, map[string]any{
		"instruction": "x", "type": "EXAM", "provider": "OPENAI",
	})
	h.expect(r, http.StatusPaymentRequired)
	if got := r.errorCode(t); got != "insufficient_credits" {
		t.Fatalf("code: want=insufficient_credits got=%s", got)
	}
}

func TestProviderFailureIs500AndCostsNothing(t *testing.T) {
	h := newHarness(t, 0)
	h.stub.text = "lo siento, no puedo"
	teacher := testutil.SeedUser(t, h.app.DB, types.RoleTeacher, "t@aula.test", 50)
	token, _, _ := h.app.Services.Auth.IssueToken(teacher)

	r := h.do(http.MethodPost, "/api/activities/generate", token, map[string]any{
		"instruction": "x", "type": "QUIZ", "provider": "OPENAI",
	})
	h.expect(r, http.StatusInternalServerError)
	if got := r.errorCode(t); got != "generation_failed" {
		t.Fatalf("code: want=generation_failed got=%s", got)
	}

	r = h.do(http.MethodGet, "/api/credits/balance", token, nil)
	h.expect(r, http.StatusOK)
	var bal struct {
		Credits int `json:"credits"`
	}
	r.decode(t, &bal)
	if bal.Credits != 50 {
		t.Fatalf("balance: want=50 got=%d", bal.Credits)
	}
}

func TestAdminRoutesAreRoleGated(t *testing.T) {
	h := newHarness(t, 0)
	admin := h.adminToken()
	teacher := testutil.SeedUser(t, h.app.DB, types.RoleTeacher, "t2@aula.test", 0)
	tToken, _, _ := h.app.Services.Auth.IssueToken(teacher)

	h.expect(h.do(http.MethodGet, "/api/admin/stats", tToken, nil), http.StatusForbidden)
	h.expect(h.do(http.MethodGet, "/api/admin/stats", admin, nil), http.StatusOK)
	h.expect(h.do(http.MethodPost, "/api/institutions", tToken, map[string]any{"name": "Y"}), http.StatusForbidden)

	r := h.do(http.MethodPut, "/api/admin/users/"+teacher.ID.String()+"/status", admin, map[string]any{"isActive": false})
	h.expect(r, http.StatusOK)
	r = h.do(http.MethodGet, "/api/auth/profile", tToken, nil)
	h.expect(r, http.StatusForbidden)
	if got := r.errorCode(t); got != "account_disabled" {
		t.Fatalf("code: want=account_disabled got=%s", got)
	}
}

func TestRateLimitOnAPI(t *testing.T) {
	h := newHarness(t, 2)
	h.expect(h.do(http.MethodGet, "/api/health", "", nil), http.StatusOK)
	h.expect(h.do(http.MethodGet, "/api/health", "", nil), http.StatusOK)
	r := h.do(http.MethodGet, "/api/health", "", nil)
	h.expect(r, http.StatusTooManyRequests)
	if got := r.errorCode(t); got != "rate_limited" {
		t.Fatalf("code: want=rate_limited got=%s", got)
	}
	h.expect(h.do(http.MethodGet, "/health", "", nil), http.StatusOK)
}
