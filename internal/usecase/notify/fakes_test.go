package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"casetrack/internal/domain/entity"
)

/* ───────── case repository ───────── */

type fakeCases struct {
	mu    sync.Mutex
	cases map[int64]*entity.CaseInfo
	err   error
	calls int
}

func newFakeCases(infos ...*entity.CaseInfo) *fakeCases {
	f := &fakeCases{cases: make(map[int64]*entity.CaseInfo)}
	for _, info := range infos {
		f.cases[info.ID] = info
	}
	return f
}

func (f *fakeCases) GetCaseInfo(_ context.Context, caseID int64) (*entity.CaseInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	info, ok := f.cases[caseID]
	if !ok {
		return nil, fmt.Errorf("GetCaseInfo: case %d: %w", caseID, entity.ErrNotFound)
	}
	copied := *info
	return &copied, nil
}

func (f *fakeCases) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

/* ───────── delivery repository ───────── */

type fakeDeliveries struct {
	mu        sync.Mutex
	records   map[string]entity.Notification
	retryable []*entity.Notification
	listErr   error
	listArgs  struct {
		maxAttempts int
		since       time.Time
		staleBefore time.Time
		limit       int
	}
}

func newFakeDeliveries() *fakeDeliveries {
	return &fakeDeliveries{records: make(map[string]entity.Notification)}
}

func (f *fakeDeliveries) Create(_ context.Context, n *entity.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[n.ID] = *n
	return nil
}

func (f *fakeDeliveries) MarkSent(_ context.Context, id string, attempts int) error {
	return f.update(id, func(r *entity.Notification) {
		r.Status = entity.StatusSent
		r.Attempts = attempts
		r.LastError = ""
	})
}

func (f *fakeDeliveries) MarkFailed(_ context.Context, id string, attempts int, lastError string) error {
	return f.update(id, func(r *entity.Notification) {
		r.Status = entity.StatusFailed
		r.Attempts = attempts
		r.LastError = lastError
	})
}

func (f *fakeDeliveries) update(id string, fn func(*entity.Notification)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return entity.ErrNotFound
	}
	fn(&r)
	f.records[id] = r
	return nil
}

func (f *fakeDeliveries) ListRetryable(_ context.Context, maxAttempts int, since, staleBefore time.Time, limit int) ([]*entity.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listArgs.maxAttempts = maxAttempts
	f.listArgs.since = since
	f.listArgs.staleBefore = staleBefore
	f.listArgs.limit = limit
	return f.retryable, f.listErr
}

func (f *fakeDeliveries) get(id string) (entity.Notification, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	return r, ok
}

/* ───────── deduper ───────── */

type fakeDeduper struct {
	mu      sync.Mutex
	claimed map[string]bool
	err      error
	ttls     []time.Duration
	released []string
}

func (f *fakeDeduper) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls = append(f.ttls, ttl)
	if f.err != nil {
		return false, f.err
	}
	if f.claimed == nil {
		f.claimed = make(map[string]bool)
	}
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func (f *fakeDeduper) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, key)
	delete(f.claimed, key)
	return nil
}

/* ───────── fixtures ───────── */

func annLee() *entity.CaseInfo {
	return &entity.CaseInfo{ID: 7, FirstName: "Ann", LastName: "Lee", DOB: "34", Gender: "F"}
}

func johnDoe() *entity.CaseInfo {
	return &entity.CaseInfo{ID: 8, FirstName: "john", LastName: "doe", DOB: "1955-03-10", Gender: "M"}
}
