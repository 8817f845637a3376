package sync

import (
	"context"
	"sync"
	"time"

	"github.com/njoerd114/linkpaper/internal/model"
)

// --- Mock Source ---------------------------------------------------------

type mockSource struct {
	mu    sync.Mutex
	links []model.Link
	// errs is consumed one per ListCandidates call; nil entries mean the
	// call succeeds. Once drained, calls succeed.
	errs  []error
	calls int
}

func newMockSource(links ...model.Link) *mockSource {
	return &mockSource{links: links}
}

func (m *mockSource) failWith(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = errs
}

func (m *mockSource) ListCandidates(_ context.Context) ([]model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}

	result := make([]model.Link, len(m.links))
	copy(result, m.links)
	return result, nil
}

func (m *mockSource) listCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Mock Submitter ------------------------------------------------------

type submission struct {
	url   string
	title string
}

type mockSubmitter struct {
	mu        sync.Mutex
	submitted []submission // successful submissions in order
	failURLs  map[string]error
}

func newMockSubmitter() *mockSubmitter {
	return &mockSubmitter{failURLs: make(map[string]error)}
}

// failURL makes submissions for url fail with err. A nil err clears the
// failure again.
func (m *mockSubmitter) failURL(url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failURLs, url)
		return
	}
	m.failURLs[url] = err
}

func (m *mockSubmitter) Submit(_ context.Context, url, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failURLs[url]; ok {
		return err
	}
	m.submitted = append(m.submitted, submission{url: url, title: title})
	return nil
}

func (m *mockSubmitter) submittedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, 0, len(m.submitted))
	for _, s := range m.submitted {
		result = append(result, s.url)
	}
	return result
}

func (m *mockSubmitter) submitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.submitted)
}

// --- Mock State Store ----------------------------------------------------

type mockStore struct {
	mu     sync.Mutex
	synced map[string]time.Time
	// isErr/markErr make the next IsSynced/MarkSynced call fail.
	isErr   error
	markErr error
}

func newMockStore() *mockStore {
	return &mockStore{synced: make(map[string]time.Time)}
}

func (m *mockStore) seed(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.synced[id] = time.Now().UTC()
	}
}

func (m *mockStore) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synced = make(map[string]time.Time)
}

func (m *mockStore) IsSynced(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isErr != nil {
		return false, m.isErr
	}
	_, ok := m.synced[id]
	return ok, nil
}

func (m *mockStore) MarkSynced(_ context.Context, id string, syncedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	if _, ok := m.synced[id]; !ok {
		m.synced[id] = syncedAt
	}
	return nil
}

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.synced)
}

func (m *mockStore) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.synced[id]
	return ok
}

func (m *mockStore) snapshot() map[string]time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]time.Time, len(m.synced))
	for id, ts := range m.synced {
		cp[id] = ts
	}
	return cp
}

// --- Mock Launcher -------------------------------------------------------

type mockLauncher struct {
	mu    sync.Mutex
	calls int
	err   error
	// onLaunch runs inside EnsureRunning, letting tests make the source
	// readable the way a real app launch would.
	onLaunch func()
}

func newMockLauncher() *mockLauncher {
	return &mockLauncher{}
}

func (m *mockLauncher) EnsureRunning(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return m.err
	}
	if m.onLaunch != nil {
		m.onLaunch()
	}
	return nil
}

func (m *mockLauncher) launchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
