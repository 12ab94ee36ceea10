package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"talentscan/cv-screener/internal/models"
	"talentscan/cv-screener/internal/services"
)

type testEnv struct {
	app        *fiber.App
	runs       *stubRunRepo
	docs       *stubDocRepo
	candidates *stubCandidateRepo
	worker     *recordingWorker
	pool       *stubPool
	drive      *stubDrive
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	storage, err := services.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		runs:       newStubRunRepo(),
		docs:       &stubDocRepo{},
		candidates: &stubCandidateRepo{},
		worker:     &recordingWorker{},
		pool:       &stubPool{},
		drive:      &stubDrive{data: map[string][]byte{}},
	}

	env.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(env.app, Handlers{
		Screening: NewScreeningHandler(env.runs, env.docs, env.candidates, storage, env.worker, env.drive, 1024, 2, zap.NewNop()),
		Candidate: NewCandidateHandler(env.candidates, env.pool, zap.NewNop()),
		Analytics: NewAnalyticsHandler(services.NewAnalyticsService(env.candidates)),
	})
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

type upload struct {
	name    string
	content string
}

func multipartRequest(t *testing.T, fields map[string]string, files []upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/screenings", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}

func TestCreateScreening(t *testing.T) {
	env := newTestEnv(t)

	req := multipartRequest(t,
		map[string]string{"job_title": "Backend Engineer", "job_description": "Go and Postgres"},
		[]upload{
			{name: "alice.pdf", content: "%PDF-1.4 fake"},
			{name: "bob.txt", content: "Bob CV"},
			{name: "alice.pdf", content: "duplicate"},
			{name: "photo.png", content: "img"},
			{name: "huge.txt", content: strings.Repeat("x", 2048)},
		},
	)
	resp, body := env.do(t, req)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var out models.CreateScreeningResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "queued", out.Status)
	assert.Equal(t, 2, out.Documents)
	assert.Len(t, out.Skipped, 3)

	runID := uuid.MustParse(out.ID)
	run, err := env.runs.FindByID(runID)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", run.JobTitle)
	assert.Equal(t, 2, run.Total)

	docs, _ := env.docs.FindByRun(runID)
	require.Len(t, docs, 2)
	assert.Equal(t, "alice.pdf", docs[0].OriginalFileName)
	assert.Equal(t, services.MimePDF, docs[0].MimeType)
	assert.True(t, strings.HasPrefix(docs[1].StorageKey, "resume_"))

	assert.Equal(t, []uuid.UUID{runID}, env.worker.enqueued)
}

func TestCreateScreeningMissingInput(t *testing.T) {
	env := newTestEnv(t)

	cases := []*http.Request{
		multipartRequest(t, map[string]string{"job_description": "jd"}, []upload{{name: "a.pdf", content: "x"}}),
		multipartRequest(t, map[string]string{"job_title": "t", "job_description": "  "}, []upload{{name: "a.pdf", content: "x"}}),
		multipartRequest(t, map[string]string{"job_title": "t", "job_description": "jd"}, nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/screenings", strings.NewReader("{}")),
	}

	for _, req := range cases {
		resp, body := env.do(t, req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, string(body), missingInputMessage)
	}
	assert.Empty(t, env.worker.enqueued)
}

func TestCreateScreeningNoSupportedFiles(t *testing.T) {
	env := newTestEnv(t)

	req := multipartRequest(t,
		map[string]string{"job_title": "t", "job_description": "jd"},
		[]upload{{name: "a.exe", content: "x"}},
	)
	resp, _ := env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.runs.runs)
}

func TestCreateScreeningRepoFailure(t *testing.T) {
	env := newTestEnv(t)
	env.runs.createErr = errors.New("db down")

	req := multipartRequest(t,
		map[string]string{"job_title": "t", "job_description": "jd"},
		[]upload{{name: "a.txt", content: "x"}},
	)
	resp, _ := env.do(t, req)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Empty(t, env.worker.enqueued)
}

func TestCreateScreeningFromDrive(t *testing.T) {
	env := newTestEnv(t)
	env.drive.files = []services.DriveFile{{ID: "1", Name: "dana.pdf"}, {ID: "2", Name: "eve.docx"}}
	env.drive.data["1"] = []byte("%PDF-1.4")

	payload := `{"job_title":"SRE","job_description":"Linux","folder_id":"folder"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/screenings/drive", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, body := env.do(t, req)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var out models.CreateScreeningResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 1, out.Documents)
	assert.Len(t, env.worker.enqueued, 1)
}

func seedRun(env *testEnv) *models.ScreeningRun {
	run := &models.ScreeningRun{ID: uuid.New(), JobTitle: "Backend", Status: models.RunCompleted, Total: 3, Processed: 3}
	env.runs.runs[run.ID] = run
	for _, c := range []models.CandidateLog{
		{CandidateName: "Low", Score: 30},
		{CandidateName: "Top", Score: 95, Strengths: []string{"Go", "SQL"}},
		{CandidateName: "Mid", Score: 70},
	} {
		c.ID = uuid.New()
		c.RunID = run.ID
		c.JobTitle = run.JobTitle
		c.Stage = models.StageNew
		env.candidates.candidates = append(env.candidates.candidates, c)
	}
	return run
}

func TestGetScreening(t *testing.T) {
	env := newTestEnv(t)
	run := seedRun(env)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/screenings/"+run.ID.String(), nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out models.ScreeningResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "completed", out.Status)
	require.Len(t, out.Shortlist, 2, "default shortlist size")
	assert.Equal(t, "Top", out.Shortlist[0].CandidateName)
	assert.Equal(t, 1, out.Shortlist[0].Rank)

	_, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/screenings/"+run.ID.String()+"?limit=0", nil))
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Len(t, out.Shortlist, 3)
}

func TestGetScreeningErrors(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/screenings/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/screenings/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportScreening(t *testing.T) {
	env := newTestEnv(t)
	run := seedRun(env)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/screenings/"+run.ID.String()+"/export?format=csv", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "screening_"+run.ID.String()+".csv")

	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Top", records[1][1])
	assert.Equal(t, "Go; SQL", records[1][9])

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/screenings/"+run.ID.String()+"/export?format=xlsx", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, []byte("PK")), "xlsx is a zip archive")

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/screenings/"+run.ID.String()+"/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListCandidates(t *testing.T) {
	env := newTestEnv(t)
	seedRun(env)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/candidates?job_title=Backend&stage=new", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []models.CandidateLog
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Len(t, out, 3)
	assert.Equal(t, "Backend", env.candidates.listed.JobTitle)
	assert.Equal(t, models.StageNew, env.candidates.listed.Stage)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/candidates?stage=hired", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/candidates?job_title=Nobody", nil))
	assert.JSONEq(t, "[]", string(body))
}

func TestGetCandidate(t *testing.T) {
	env := newTestEnv(t)
	seedRun(env)
	id := env.candidates.candidates[1].ID

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/candidates/"+id.String(), nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"candidate_name":"Top"`)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/candidates/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateStage(t *testing.T) {
	env := newTestEnv(t)
	seedRun(env)
	id := env.candidates.candidates[0].ID

	patch := func(target, body string) *http.Request {
		req := httptest.NewRequest(http.MethodPatch, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	resp, body := env.do(t, patch("/api/v1/candidates/"+id.String()+"/stage", `{"stage":"interview"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"stage":"Interview"`)
	assert.Equal(t, models.StageInterview, env.candidates.candidates[0].Stage)

	resp, _ = env.do(t, patch("/api/v1/candidates/"+id.String()+"/stage", `{"stage":"Hired"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, patch("/api/v1/candidates/"+uuid.NewString()+"/stage", `{"stage":"Offer"}`))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSearchCandidates(t *testing.T) {
	env := newTestEnv(t)
	seedRun(env)
	top := env.candidates.candidates[1]
	env.pool.hits = []services.PoolHit{
		{CandidateID: top.ID.String(), Score: 0.9, Snippet: "Go services"},
		{CandidateID: uuid.NewString(), Score: 0.5, Snippet: "orphan"},
	}

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/candidates/search?q=golang&limit=5", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var hits []models.SearchHit
	require.NoError(t, json.Unmarshal(body, &hits))
	require.Len(t, hits, 2)
	require.NotNil(t, hits[0].Candidate)
	assert.Equal(t, "Top", hits[0].Candidate.CandidateName)
	assert.Nil(t, hits[1].Candidate)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/candidates/search", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.pool.err = services.ErrTalentPoolDisabled
	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/candidates/search?q=go", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRolesAndAnalytics(t *testing.T) {
	env := newTestEnv(t)
	seedRun(env)

	_, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/roles", nil))
	assert.JSONEq(t, `["Backend"]`, string(body))

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out models.AnalyticsResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Pipeline, len(models.Stages))
	assert.Equal(t, int64(3), out.Pipeline[0].Count)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?trend=-1", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/teapot", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"short and stout","code":418}`, string(body))
}
