package autopilot

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"tubepilot/internal/auth"
	"tubepilot/internal/model"
	"tubepilot/internal/store"
	"tubepilot/internal/uploader"
)

// memStore is an in-memory TaskStore with the same claim and finish
// semantics as the SQL implementation.
type memStore struct {
	mu      sync.Mutex
	tasks   map[string]*model.UploadTask
	order   []string
	listErr error
}

func newMemStore(tasks ...*model.UploadTask) *memStore {
	m := &memStore{tasks: make(map[string]*model.UploadTask)}
	for _, t := range tasks {
		m.tasks[t.ID] = t
		m.order = append(m.order, t.ID)
	}
	return m
}

func (m *memStore) GetTask(_ context.Context, id string) (*model.UploadTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *memStore) ListTasks(_ context.Context) ([]model.UploadTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.UploadTask
	for _, id := range m.order {
		out = append(out, *m.tasks[id])
	}
	return out, nil
}

func (m *memStore) ClaimTask(_ context.Context, id string) (*model.UploadTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !t.Status.Claimable() {
		return nil, store.ErrInvalidState
	}
	t.Status = model.StatusUploading
	t.FailureReason = ""
	copied := *t
	return &copied, nil
}

func (m *memStore) FinishTask(_ context.Context, id string, status model.Status, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	if t.Status != model.StatusUploading {
		return store.ErrInvalidState
	}
	t.Status = status
	t.FailureReason = reason
	return nil
}

func (m *memStore) status(id string) model.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id].Status
}

type stubResolver struct {
	token    string
	err      error
	resolved []string
}

func (r *stubResolver) Resolve(_ context.Context, accountID string, _ *auth.TokenCache) (string, error) {
	r.resolved = append(r.resolved, accountID)
	if r.err != nil {
		return "", r.err
	}
	return r.token, nil
}

type stubValidator struct {
	err error
}

func (v *stubValidator) Validate(_ context.Context, _ *model.UploadTask) error {
	return v.err
}

func (v *stubValidator) Source(_ *model.UploadTask) uploader.Source {
	return stubSource{}
}

type stubSource struct{}

func (stubSource) Name() string { return "intro.mp4" }

func (stubSource) Open(_ context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("video")), nil
}

type stubUploader struct {
	result       *uploader.Result
	err          error
	panicMsg     string
	thumbErr     error
	thumbCalls   int
	uploadCalls  int
	lastPayload  uploader.Payload
	lastToken    string
	lastThumbURL string
}

func (u *stubUploader) Upload(_ context.Context, accessToken string, payload uploader.Payload, _ uploader.Source) (*uploader.Result, error) {
	u.uploadCalls++
	u.lastToken = accessToken
	u.lastPayload = payload
	if u.panicMsg != "" {
		panic(u.panicMsg)
	}
	if u.err != nil {
		return nil, u.err
	}
	return u.result, nil
}

func (u *stubUploader) SetThumbnail(_ context.Context, _, _, thumbnailURL string) error {
	u.thumbCalls++
	u.lastThumbURL = thumbnailURL
	return u.thumbErr
}

func queuedTask(id string) *model.UploadTask {
	return &model.UploadTask{
		ID:           id,
		AccountID:    "acc-1",
		Title:        "My first upload",
		Description:  "A long enough description",
		Visibility:   model.VisibilityPrivate,
		ScheduleType: model.ScheduleImmediate,
		SourceType:   model.SourceFile,
		SourceValue:  "intro.mp4",
		Status:       model.StatusQueued,
	}
}

type executorFixture struct {
	store    *memStore
	resolver *stubResolver
	uploads  *stubUploader
	executor *Executor
}

func newFixture(tasks ...*model.UploadTask) *executorFixture {
	f := &executorFixture{
		store:    newMemStore(tasks...),
		resolver: &stubResolver{token: "tok-abc"},
		uploads:  &stubUploader{result: &uploader.Result{VideoID: "vid-123"}},
	}
	f.executor = NewExecutor(ExecutorOptions{
		Tasks:   f.store,
		Creds:   f.resolver,
		Sources: &stubValidator{},
		Uploads: f.uploads,
	})
	return f
}

func TestExecuteSuccess(t *testing.T) {
	f := newFixture(queuedTask("t1"))

	result := f.executor.Execute(context.Background(), "t1", auth.NewTokenCache())
	if !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
	if result.VideoID != "vid-123" {
		t.Errorf("video id = %q", result.VideoID)
	}
	if f.store.status("t1") != model.StatusPublished {
		t.Errorf("status = %s, want published", f.store.status("t1"))
	}
	if f.uploads.lastToken != "tok-abc" {
		t.Errorf("token = %q", f.uploads.lastToken)
	}
	if f.uploads.lastPayload.Title != "My first upload" || f.uploads.lastPayload.Privacy != "private" {
		t.Errorf("payload = %+v", f.uploads.lastPayload)
	}
	if f.uploads.thumbCalls != 0 {
		t.Error("no thumbnail set without a thumbnail URL")
	}
}

func TestExecuteUnknownTask(t *testing.T) {
	f := newFixture()

	result := f.executor.Execute(context.Background(), "ghost", auth.NewTokenCache())
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Err.Kind != KindNotFound {
		t.Errorf("kind = %s, want not_found", result.Err.Kind)
	}
	if f.uploads.uploadCalls != 0 {
		t.Error("no upload should be attempted")
	}
}

func TestExecuteUnclaimableTask(t *testing.T) {
	task := queuedTask("t1")
	task.Status = model.StatusPublished
	f := newFixture(task)

	result := f.executor.Execute(context.Background(), "t1", auth.NewTokenCache())
	if result.Err == nil || result.Err.Kind != KindInvalidState {
		t.Fatalf("result = %+v, want invalid_state", result)
	}
	// The losing claim writes nothing.
	if f.store.status("t1") != model.StatusPublished {
		t.Errorf("status = %s, want untouched", f.store.status("t1"))
	}
}

func TestExecuteOnlyOneClaimWins(t *testing.T) {
	f := newFixture(queuedTask("t1"))
	ctx := context.Background()

	first := f.executor.Execute(ctx, "t1", auth.NewTokenCache())
	second := f.executor.Execute(ctx, "t1", auth.NewTokenCache())

	if !first.Success {
		t.Fatalf("first = %+v", first)
	}
	if second.Success || second.Err.Kind != KindInvalidState {
		t.Fatalf("second = %+v, want invalid_state", second)
	}
	if f.uploads.uploadCalls != 1 {
		t.Errorf("uploads = %d, want 1", f.uploads.uploadCalls)
	}
}

func TestExecuteMissingCredentials(t *testing.T) {
	f := newFixture(queuedTask("t1"))
	f.resolver.err = auth.ErrMissingCredentials

	result := f.executor.Execute(context.Background(), "t1", auth.NewTokenCache())
	if result.Err == nil || result.Err.Kind != KindMissingCredentials {
		t.Fatalf("result = %+v, want missing_credentials", result)
	}
	if result.Err.Retryable {
		t.Error("missing credentials are not retryable")
	}
	if f.store.status("t1") != model.StatusFailed {
		t.Errorf("status = %s, want failed", f.store.status("t1"))
	}
}

func TestExecuteCredentialClassification(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantKind      Kind
		wantRetryable bool
	}{
		{"configError", &auth.ConfigError{Err: errors.New("invalid_grant")}, KindConfiguration, false},
		{"refreshError", &auth.RefreshError{Err: errors.New("503")}, KindAuthRefresh, true},
		{"unknownError", errors.New("boom"), KindInternal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(queuedTask("t1"))
			f.resolver.err = tt.err

			result := f.executor.Execute(context.Background(), "t1", auth.NewTokenCache())
			if result.Err == nil || result.Err.Kind != tt.wantKind {
				t.Fatalf("result = %+v, want kind %s", result, tt.wantKind)
			}
			if result.Err.Retryable != tt.wantRetryable {
				t.Errorf("retryable = %v, want %v", result.Err.Retryable, tt.wantRetryable)
			}
			if f.store.status("t1") != model.StatusFailed {
				t.Errorf("status = %s, want failed", f.store.status("t1"))
			}
		})
	}
}

func TestExecuteSourceUnavailable(t *testing.T) {
	f := newFixture(queuedTask("t1"))
	f.executor = NewExecutor(ExecutorOptions{
		Tasks:   f.store,
		Creds:   f.resolver,
		Sources: &stubValidator{err: errors.New("source file not reachable")},
		Uploads: f.uploads,
	})

	result := f.executor.Execute(context.Background(), "t1", auth.NewTokenCache())
	if result.Err == nil || result.Err.Kind != KindSourceUnavailable {
		t.Fatalf("result = %+v, want source_unavailable", result)
	}
	if f.uploads.uploadCalls != 0 {
		t.Error("no upload should be attempted for an unreachable source")
	}
	if f.store.status("t1") != model.StatusFailed {
		t.Errorf("status = %s, want failed", f.store.status("t1"))
	}
}

func TestExecuteUploadErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantRetryable bool
	}{
		{"retryableQuota", &uploader.Error{StatusCode: 403, Reason: "quotaExceeded", Retryable: true}, true},
		{"permanentRejection", &uploader.Error{StatusCode: 400, Reason: "invalidTitle"}, false},
		{"plainError", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(queuedTask("t1"))
			f.uploads.err = tt.err

			result := f.executor.Execute(context.Background(), "t1", auth.NewTokenCache())
			if result.Success {
				t.Fatal("expected failure")
			}
			if result.Err.Retryable != tt.wantRetryable {
				t.Errorf("retryable = %v, want %v", result.Err.Retryable, tt.wantRetryable)
			}
			if f.store.status("t1") != model.StatusFailed {
				t.Errorf("status = %s, want failed", f.store.status("t1"))
			}
		})
	}
}

func TestExecutePanicFinalizesFailed(t *testing.T) {
	f := newFixture(queuedTask("t1"))
	f.uploads.panicMsg = "nil pointer somewhere deep"

	result := f.executor.Execute(context.Background(), "t1", auth.NewTokenCache())
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Err.Kind != KindInternal {
		t.Errorf("kind = %s, want internal_error", result.Err.Kind)
	}
	// The claim must not leak an uploading status.
	if f.store.status("t1") != model.StatusFailed {
		t.Errorf("status = %s, want failed", f.store.status("t1"))
	}
}

func TestExecuteThumbnailBestEffort(t *testing.T) {
	task := queuedTask("t1")
	task.ThumbnailURL = "https://cdn.example.com/thumb.png"
	f := newFixture(task)
	f.uploads.thumbErr = errors.New("thumbnail rejected")

	result := f.executor.Execute(context.Background(), "t1", auth.NewTokenCache())
	if !result.Success {
		t.Fatalf("result = %+v, thumbnail failure must not fail the task", result)
	}
	if f.uploads.thumbCalls != 1 {
		t.Errorf("thumb calls = %d, want 1", f.uploads.thumbCalls)
	}
	if f.uploads.lastThumbURL != task.ThumbnailURL {
		t.Errorf("thumb url = %q", f.uploads.lastThumbURL)
	}
	if f.store.status("t1") != model.StatusPublished {
		t.Errorf("status = %s, want published", f.store.status("t1"))
	}
}

func TestExecuteFailedTaskRetry(t *testing.T) {
	task := queuedTask("t1")
	task.Status = model.StatusFailed
	task.FailureReason = "network error"
	f := newFixture(task)

	result := f.executor.Execute(context.Background(), "t1", auth.NewTokenCache())
	if !result.Success {
		t.Fatalf("result = %+v, failed tasks are directly claimable", result)
	}
	if f.store.status("t1") != model.StatusPublished {
		t.Errorf("status = %s, want published", f.store.status("t1"))
	}
}
