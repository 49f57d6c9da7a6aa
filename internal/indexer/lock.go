package indexer

import "sync"

// ProjectLock admits one ingestion per project slug. Different projects
// proceed concurrently.
type ProjectLock struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// TryAcquire marks project as being ingested. It returns false without
// blocking when an ingestion of the same project is already running.
func (l *ProjectLock) TryAcquire(project string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.active[project]; busy {
		return false
	}
	if l.active == nil {
		l.active = make(map[string]struct{})
	}
	l.active[project] = struct{}{}
	return true
}

// Release frees project. Only the caller that acquired it may release it.
func (l *ProjectLock) Release(project string) {
	l.mu.Lock()
	delete(l.active, project)
	l.mu.Unlock()
}
