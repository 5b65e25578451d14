package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rehberci/backupd/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

// memLedger mirrors the SQLite ledger's behaviour, including transition
// enforcement, so use cases are tested against the same contract.
type memLedger struct {
	mu   sync.Mutex
	jobs map[string]domain.BackupJob
}

func newMemLedger() *memLedger {
	return &memLedger{jobs: make(map[string]domain.BackupJob)}
}

func (m *memLedger) Create(_ context.Context, job domain.BackupJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return fmt.Errorf("duplicate job %s", job.ID)
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *memLedger) Get(_ context.Context, id string) (domain.BackupJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.BackupJob{}, domain.ErrJobNotFound
	}
	return job, nil
}

func (m *memLedger) Update(_ context.Context, job domain.BackupJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.jobs[job.ID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if current.Status != job.Status && !current.Status.CanTransitionTo(job.Status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, job.Status)
	}
	if current.Status == job.Status && current.Status.Terminal() {
		return fmt.Errorf("%w: job %s is %s", domain.ErrInvalidTransition, job.ID, current.Status)
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *memLedger) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return domain.ErrJobNotFound
	}
	delete(m.jobs, id)
	return nil
}

func (m *memLedger) List(_ context.Context) ([]domain.BackupJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.BackupJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memLedger) ListByStatus(ctx context.Context, status domain.JobStatus) ([]domain.BackupJob, error) {
	all, _ := m.List(ctx)
	var out []domain.BackupJob
	for _, job := range all {
		if job.Status == status {
			out = append(out, job)
		}
	}
	return out, nil
}

// fakeExtractor serves canned rows and can be told to fail on one table or
// to block until released, for exercising the single-flight guard.
type fakeExtractor struct {
	rows   map[string][]domain.Row
	failOn string
	gate   chan struct{}
}

func (f *fakeExtractor) ReadAll(ctx context.Context, table string) ([]domain.Row, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if table == f.failOn {
		return nil, fmt.Errorf("permission denied for relation %s", table)
	}
	return f.rows[table], nil
}

type fakeArtifacts struct {
	mu          sync.Mutex
	objects     map[string][]byte
	removed     []string
	uploadErr   error
	removeErrOn map[string]bool
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{objects: make(map[string][]byte)}
}

func (f *fakeArtifacts) Upload(_ context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.objects[name] = data
	return nil
}

func (f *fakeArtifacts) Download(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[name]
	if !ok {
		return nil, fmt.Errorf("object %s not found", name)
	}
	return data, nil
}

func (f *fakeArtifacts) SignedURL(_ context.Context, name string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[name]; !ok {
		return "", fmt.Errorf("object %s not found", name)
	}
	return "https://blob.example/" + name + "?signed", nil
}

func (f *fakeArtifacts) Remove(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErrOn[name] {
		return fmt.Errorf("delete %s rejected", name)
	}
	delete(f.objects, name)
	f.removed = append(f.removed, name)
	return nil
}

func (f *fakeArtifacts) removeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.removed)
}

// memSchedule is an in-memory ScheduleStore with the same versioning rules
// as the SQLite one. conflictNext forces one ErrScheduleConflict to test the
// tick's reload-and-retry path.
type memSchedule struct {
	mu           sync.Mutex
	sched        domain.Schedule
	conflictNext bool
}

func (m *memSchedule) Load(context.Context) (domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sched, nil
}

func (m *memSchedule) Save(_ context.Context, s domain.Schedule) (domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflictNext {
		m.conflictNext = false
		m.sched.Version++ // somebody else got there first
		return domain.Schedule{}, domain.ErrScheduleConflict
	}
	if s.Version != m.sched.Version {
		return domain.Schedule{}, domain.ErrScheduleConflict
	}
	s.Version++
	m.sched = s
	return s, nil
}
