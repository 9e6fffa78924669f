package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/asphalt-aid/backend/internal/config"
	"github.com/asphalt-aid/backend/internal/handlers"
	"github.com/asphalt-aid/backend/internal/jobqueue"
	"github.com/asphalt-aid/backend/internal/permissions"
	"github.com/asphalt-aid/backend/internal/repository/memory"
	"github.com/asphalt-aid/backend/internal/routes"
	"github.com/asphalt-aid/backend/internal/services"
	"github.com/asphalt-aid/backend/internal/severity"
	"github.com/asphalt-aid/backend/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const password = "Gr4vel-Road-Mend"

type stubPredictor struct{}

func (stubPredictor) Predict(context.Context, []byte) (severity.Prediction, error) {
	return severity.Prediction{Class: 2, Label: "major_pothole", Confidence: 0.93, Severity: 3}, nil
}

func (stubPredictor) Loaded() bool { return true }

type memQueue struct {
	mu   sync.Mutex
	jobs map[string]*jobqueue.Job
}

func (q *memQueue) EnqueueAnalysis(_ context.Context, reportID uuid.UUID) (*jobqueue.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job := &jobqueue.Job{
		ID:         uuid.NewString(),
		Type:       jobqueue.JobTypeAnalyzeReport,
		Status:     jobqueue.JobStatusPending,
		Payload:    jobqueue.AnalyzePayload{ReportID: reportID.String()}.ToMap(),
		CreatedAt:  time.Now(),
		MaxRetries: 3,
	}
	q.jobs[job.ID] = job
	return job, nil
}

func (q *memQueue) Get(_ context.Context, id string) (*jobqueue.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job, ok := q.jobs[id]; ok {
		return job, nil
	}
	return nil, jobqueue.ErrJobNotFound
}

func (q *memQueue) Stats(context.Context) (map[jobqueue.JobStatus]int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return map[jobqueue.JobStatus]int64{jobqueue.JobStatusPending: int64(len(q.jobs))}, nil
}

func (q *memQueue) Size(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.jobs)), nil
}

func (q *memQueue) Delayed(context.Context) (int64, error) { return 0, nil }

type testServer struct {
	app   *fiber.App
	db    *memory.Store
	files storage.Storage
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	files, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	perms, err := permissions.New()
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:        "handler-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: time.Hour,
		AdminEmails:      "admin@example.com",
		RateLimitMax:     1000,
		AuthRateLimit:    1000,
		MaxUploadMB:      1,
	}
	db := memory.NewStore()

	authService := services.NewAuthService(db.Users(), db.Tokens(), cfg)
	userService := services.NewUserService(db.Users(), db.Tokens(), db.Reports(), files)
	reportService := services.NewReportService(db.Reports(), files, stubPredictor{}, services.NewContentFilter())
	adminService := services.NewAdminService(db.Reports(), &memQueue{jobs: map[string]*jobqueue.Job{}})

	okPing := func(context.Context) error { return nil }
	downPing := func(context.Context) error { return errors.New("connection refused") }

	app := fiber.New()
	routes.Setup(app, cfg, routes.Handlers{
		Auth:    handlers.NewAuthHandler(authService),
		Profile: handlers.NewProfileHandler(userService),
		Reports: handlers.NewReportHandler(reportService, cfg.MaxUploadBytes()),
		Admin:   handlers.NewAdminHandler(adminService),
		Health:  handlers.NewHealthHandler(okPing, downPing, stubPredictor{}),
	}, db.Users(), perms, nil)

	return &testServer{app: app, db: db, files: files}
}

type result struct {
	status int
	header http.Header
	raw    []byte
	body   map[string]interface{}
}

func (s *testServer) send(t *testing.T, req *http.Request, token string) result {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := result{status: resp.StatusCode, header: resp.Header, raw: raw}
	if len(raw) > 0 && resp.Header.Get("Content-Type") == fiber.MIMEApplicationJSON {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) result {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	}
	return s.send(t, req, token)
}

// upload posts a multipart report; a nil photo sends text fields only.
func (s *testServer) upload(t *testing.T, token string, fields map[string]string, filename string, photo []byte) result {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if photo != nil {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/reports", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.send(t, req, token)
}

type account struct {
	id      string
	access  string
	refresh string
}

func (s *testServer) signup(t *testing.T, username string) account {
	t.Helper()
	res := s.do(t, "POST", "/api/auth/signup", "", map[string]string{
		"username":         username,
		"email":            username + "@example.com",
		"password":         password,
		"confirm_password": password,
		"first_name":       "Test",
		"last_name":        "Citizen",
	})
	require.Equal(t, fiber.StatusCreated, res.status, string(res.raw))
	user := res.body["user"].(map[string]interface{})
	return account{
		id:      user["id"].(string),
		access:  res.body["access_token"].(string),
		refresh: res.body["refresh_token"].(string),
	}
}

func pngPhoto(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: 90, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func reportFields(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"description": "Deep hole in the right lane",
		"address":     "12 Main Street",
	}
}
