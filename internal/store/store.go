// Package store provides SQLite-backed persistence for tasks, accounts and
// AI profiles. The conditional status update in ClaimTask is the only
// synchronization primitive the autopilot relies on.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tubepilot/internal/model"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidState is returned when a status-guarded update finds the
	// task in a status the requested transition does not allow.
	ErrInvalidState = errors.New("task is not in a valid status for this operation")
)

// Store provides access to the tubepilot SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath, runs migrations,
// and fails any task left in uploading by a previous process.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.failInterrupted(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("recover interrupted tasks: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		client_id TEXT NOT NULL,
		client_secret TEXT NOT NULL,
		redirect_uri TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		scopes TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS uploads (
		id TEXT PRIMARY KEY,
		account_id TEXT,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		category_id TEXT,
		language TEXT,
		visibility TEXT NOT NULL DEFAULT 'private',
		made_for_kids INTEGER NOT NULL DEFAULT 0,
		schedule_type TEXT NOT NULL DEFAULT 'immediate',
		scheduled_for DATETIME,
		source_type TEXT NOT NULL,
		source_value TEXT NOT NULL,
		thumbnail_url TEXT,
		ai_summary TEXT,
		automation_plan TEXT,
		transcript TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		failure_reason TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		prompt TEXT NOT NULL,
		tone TEXT NOT NULL DEFAULT 'balanced',
		keywords TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_uploads_status ON uploads(status);
	CREATE INDEX IF NOT EXISTS idx_uploads_account_id ON uploads(account_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// failInterrupted moves tasks stranded in uploading by a crashed process to
// failed, preserving the invariant that no task rests in uploading.
func (s *Store) failInterrupted() error {
	res, err := s.db.Exec(
		`UPDATE uploads SET status = ?, failure_reason = ?, updated_at = ? WHERE status = ?`,
		model.StatusFailed, "upload interrupted by process restart", time.Now().UTC(), model.StatusUploading,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		slog.Warn("Failed tasks interrupted by a previous run", "count", n)
	}
	return nil
}

// --- Task operations ---

const taskColumns = `id, account_id, title, description, tags, category_id, language,
	visibility, made_for_kids, schedule_type, scheduled_for, source_type, source_value,
	thumbnail_url, ai_summary, automation_plan, transcript, status, failure_reason,
	created_at, updated_at`

// CreateTask validates and inserts a new task, assigning its id and
// timestamps. Status defaults to pending when unset.
func (s *Store) CreateTask(ctx context.Context, t *model.UploadTask) error {
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate task: %w", err)
	}

	now := time.Now().UTC()
	t.ID = uuid.New().String()
	t.CreatedAt = now
	t.UpdatedAt = now

	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO uploads (`+taskColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, nullString(t.AccountID), t.Title, t.Description, string(tags),
		nullString(t.CategoryID), nullString(t.Language), t.Visibility, t.MadeForKids,
		t.ScheduleType, nullTime(t.ScheduledFor), t.SourceType, t.SourceValue,
		nullString(t.ThumbnailURL), nullString(t.AISummary), nullString(t.AutomationPlan),
		nullString(t.Transcript), t.Status, nullString(t.FailureReason), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask loads a task by id.
func (s *Store) GetTask(ctx context.Context, id string) (*model.UploadTask, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM uploads WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks returns all tasks in insertion order.
func (s *Store) ListTasks(ctx context.Context) ([]model.UploadTask, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM uploads ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []model.UploadTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTask persists a user edit of the task's metadata fields. Status and
// failure_reason are deliberately not written here; the executor owns them.
func (s *Store) UpdateTask(ctx context.Context, t *model.UploadTask) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate task: %w", err)
	}

	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE uploads SET account_id = ?, title = ?, description = ?, tags = ?,
			category_id = ?, language = ?, visibility = ?, made_for_kids = ?,
			schedule_type = ?, scheduled_for = ?, source_type = ?, source_value = ?,
			thumbnail_url = ?, ai_summary = ?, automation_plan = ?, transcript = ?,
			updated_at = ?
		 WHERE id = ?`,
		nullString(t.AccountID), t.Title, t.Description, string(tags),
		nullString(t.CategoryID), nullString(t.Language), t.Visibility, t.MadeForKids,
		t.ScheduleType, nullTime(t.ScheduledFor), t.SourceType, t.SourceValue,
		nullString(t.ThumbnailURL), nullString(t.AISummary), nullString(t.AutomationPlan),
		nullString(t.Transcript), time.Now().UTC(), t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return requireRow(res)
}

// DeleteTask removes a task at any status.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireRow(res)
}

// ClaimTask atomically moves a claimable task ({queued, failed}) into
// uploading and returns the claimed snapshot. The update succeeds only when
// the current status matches, so two racing claimers cannot both win.
// Returns ErrInvalidState when the task exists but is not claimable.
func (s *Store) ClaimTask(ctx context.Context, id string) (*model.UploadTask, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE uploads SET status = ?, failure_reason = NULL, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		model.StatusUploading, time.Now().UTC(), id, model.StatusQueued, model.StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	if n == 0 {
		if _, err := s.GetTask(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrInvalidState
	}
	return s.GetTask(ctx, id)
}

// FinishTask moves a claimed task from uploading to a terminal status.
// reason must be non-empty iff status is failed.
func (s *Store) FinishTask(ctx context.Context, id string, status model.Status, reason string) error {
	if !status.Terminal() {
		return fmt.Errorf("finish task: %q is not a terminal status", status)
	}
	if (reason != "") != (status == model.StatusFailed) {
		return fmt.Errorf("finish task: failure reason must be set iff status is failed")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE uploads SET status = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		status, nullString(reason), time.Now().UTC(), id, model.StatusUploading,
	)
	if err != nil {
		return fmt.Errorf("finish task: %w", err)
	}
	if err := requireRow(res); errors.Is(err, ErrNotFound) {
		return ErrInvalidState
	} else if err != nil {
		return err
	}
	return nil
}

// ResetTask is the explicit retry action: failed → queued, clearing the
// failure reason. Any other current status is an invalid-state error.
func (s *Store) ResetTask(ctx context.Context, id string) error {
	return s.transition(ctx, id, model.StatusQueued, model.StatusFailed)
}

// QueueTask promotes a pending or draft task into the queue.
func (s *Store) QueueTask(ctx context.Context, id string) error {
	return s.transition(ctx, id, model.StatusQueued, model.StatusPending, model.StatusDraft)
}

func (s *Store) transition(ctx context.Context, id string, to model.Status, from ...model.Status) error {
	query := `UPDATE uploads SET status = ?, failure_reason = NULL, updated_at = ? WHERE id = ? AND status IN (`
	args := []any{to, time.Now().UTC(), id}
	for i, f := range from {
		if i > 0 {
			query += ", "
		}
		query += "?"
		args = append(args, f)
	}
	query += ")"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition task: %w", err)
	}
	if n == 0 {
		if _, err := s.GetTask(ctx, id); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

// --- Account operations ---

// CreateAccount validates and inserts a new account, applying the default
// scope list when none is given.
func (s *Store) CreateAccount(ctx context.Context, a *model.YoutubeAccount) error {
	if len(a.Scopes) == 0 {
		a.Scopes = append([]string(nil), model.DefaultScopes...)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("validate account: %w", err)
	}

	a.ID = uuid.New().String()
	a.CreatedAt = time.Now().UTC()

	scopes, err := json.Marshal(a.Scopes)
	if err != nil {
		return fmt.Errorf("encode scopes: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, label, client_id, client_secret, redirect_uri, refresh_token, scopes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Label, a.ClientID, a.ClientSecret, a.RedirectURI, a.RefreshToken, string(scopes), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetAccount loads an account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (*model.YoutubeAccount, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, client_id, client_secret, redirect_uri, refresh_token, scopes, created_at
		 FROM accounts WHERE id = ?`, id)

	var a model.YoutubeAccount
	var scopes string
	err := row.Scan(&a.ID, &a.Label, &a.ClientID, &a.ClientSecret, &a.RedirectURI, &a.RefreshToken, &scopes, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if err := json.Unmarshal([]byte(scopes), &a.Scopes); err != nil {
		return nil, fmt.Errorf("decode scopes: %w", err)
	}
	return &a, nil
}

// ListAccounts returns all accounts in insertion order.
func (s *Store) ListAccounts(ctx context.Context) ([]model.YoutubeAccount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, client_id, client_secret, redirect_uri, refresh_token, scopes, created_at
		 FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.YoutubeAccount
	for rows.Next() {
		var a model.YoutubeAccount
		var scopes string
		if err := rows.Scan(&a.ID, &a.Label, &a.ClientID, &a.ClientSecret, &a.RedirectURI, &a.RefreshToken, &scopes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if err := json.Unmarshal([]byte(scopes), &a.Scopes); err != nil {
			return nil, fmt.Errorf("decode scopes: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes an account. Tasks referencing it keep their
// account_id; they fail with missing credentials when next executed.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res)
}

// --- Profile operations ---

// UpsertProfile inserts or updates a profile keyed by name.
func (s *Store) UpsertProfile(ctx context.Context, p *model.AIProfile) error {
	if p.Tone == "" {
		p.Tone = "balanced"
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validate profile: %w", err)
	}

	keywords, err := json.Marshal(p.Keywords)
	if err != nil {
		return fmt.Errorf("encode keywords: %w", err)
	}

	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.New().String()
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, name, prompt, tone, keywords, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET prompt = excluded.prompt, tone = excluded.tone,
			keywords = excluded.keywords, updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Prompt, p.Tone, string(keywords), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfileByName loads a profile by its unique name.
func (s *Store) GetProfileByName(ctx context.Context, name string) (*model.AIProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, prompt, tone, keywords, created_at, updated_at FROM profiles WHERE name = ?`, name)

	var p model.AIProfile
	var keywords string
	err := row.Scan(&p.ID, &p.Name, &p.Prompt, &p.Tone, &keywords, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if err := json.Unmarshal([]byte(keywords), &p.Keywords); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}
	return &p, nil
}

// ListProfiles returns all profiles ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]model.AIProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, prompt, tone, keywords, created_at, updated_at FROM profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var profiles []model.AIProfile
	for rows.Next() {
		var p model.AIProfile
		var keywords string
		if err := rows.Scan(&p.ID, &p.Name, &p.Prompt, &p.Tone, &keywords, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		if err := json.Unmarshal([]byte(keywords), &p.Keywords); err != nil {
			return nil, fmt.Errorf("decode keywords: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// DeleteProfile removes a profile by name.
func (s *Store) DeleteProfile(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return requireRow(res)
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.UploadTask, error) {
	var t model.UploadTask
	var accountID, categoryID, language, thumbnailURL sql.NullString
	var aiSummary, automationPlan, transcript, failureReason sql.NullString
	var scheduledFor sql.NullTime
	var tags string

	err := row.Scan(&t.ID, &accountID, &t.Title, &t.Description, &tags, &categoryID,
		&language, &t.Visibility, &t.MadeForKids, &t.ScheduleType, &scheduledFor,
		&t.SourceType, &t.SourceValue, &thumbnailURL, &aiSummary, &automationPlan,
		&transcript, &t.Status, &failureReason, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	t.AccountID = accountID.String
	t.CategoryID = categoryID.String
	t.Language = language.String
	t.ThumbnailURL = thumbnailURL.String
	t.AISummary = aiSummary.String
	t.AutomationPlan = automationPlan.String
	t.Transcript = transcript.String
	t.FailureReason = failureReason.String
	if scheduledFor.Valid {
		utc := scheduledFor.Time.UTC()
		t.ScheduledFor = &utc
	}
	return &t, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
