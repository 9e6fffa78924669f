package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/asphalt-aid/backend/internal/config"
	"github.com/asphalt-aid/backend/internal/dto"
	"github.com/asphalt-aid/backend/internal/jobqueue"
	"github.com/asphalt-aid/backend/internal/repository/memory"
	"github.com/asphalt-aid/backend/internal/severity"
	"github.com/asphalt-aid/backend/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testPassword = "Gr4vel-Road-Mend"

type stubPredictor struct {
	mu    sync.Mutex
	pred  severity.Prediction
	err   error
	calls int
}

func (p *stubPredictor) Predict(_ context.Context, _ []byte) (severity.Prediction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.pred, p.err
}

func (p *stubPredictor) Loaded() bool { return p.err == nil }

type stubQueue struct {
	mu   sync.Mutex
	jobs map[string]*jobqueue.Job
}

func newStubQueue() *stubQueue {
	return &stubQueue{jobs: map[string]*jobqueue.Job{}}
}

func (q *stubQueue) EnqueueAnalysis(_ context.Context, reportID uuid.UUID) (*jobqueue.Job, error) {
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

func (q *stubQueue) Get(_ context.Context, id string) (*jobqueue.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil, jobqueue.ErrJobNotFound
	}
	return job, nil
}

func (q *stubQueue) Stats(_ context.Context) (map[jobqueue.JobStatus]int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := map[jobqueue.JobStatus]int64{}
	for _, j := range q.jobs {
		out[j.Status]++
	}
	return out, nil
}

func (q *stubQueue) Size(_ context.Context) (int64, error) {
	return q.count(jobqueue.JobStatusPending), nil
}

func (q *stubQueue) Delayed(_ context.Context) (int64, error) {
	return q.count(jobqueue.JobStatusRetrying), nil
}

func (q *stubQueue) count(status jobqueue.JobStatus) int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	var n int64
	for _, j := range q.jobs {
		if j.Status == status {
			n++
		}
	}
	return n
}

type testEnv struct {
	db        *memory.Store
	files     storage.Storage
	predictor *stubPredictor
	queue     *stubQueue
	auth      *AuthService
	users     *UserService
	reports   *ReportService
	admin     *AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	files, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	db := memory.NewStore()
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: time.Hour,
	}
	predictor := &stubPredictor{pred: severity.Prediction{Class: 2, Label: "major_pothole", Confidence: 0.9, Severity: 3}}
	queue := newStubQueue()

	return &testEnv{
		db:        db,
		files:     files,
		predictor: predictor,
		queue:     queue,
		auth:      NewAuthService(db.Users(), db.Tokens(), cfg),
		users:     NewUserService(db.Users(), db.Tokens(), db.Reports(), files),
		reports:   NewReportService(db.Reports(), files, predictor, NewContentFilter()),
		admin:     NewAdminService(db.Reports(), queue),
	}
}

func (e *testEnv) signup(t *testing.T, username string) *dto.AuthResponse {
	t.Helper()
	resp, err := e.auth.Signup(context.Background(), &dto.SignupRequest{
		Username:        username,
		Email:           username + "@example.com",
		Password:        testPassword,
		ConfirmPassword: testPassword,
		FirstName:       "Test",
		LastName:        "Citizen",
	})
	require.NoError(t, err)
	return resp
}

func reportRequest(n int) *dto.CreateReportRequest {
	return &dto.CreateReportRequest{
		Name:        fmt.Sprintf("Hole %d", n),
		Description: "Deep hole in the right lane",
		Address:     "12 Main Street",
	}
}
