package catalog

import (
	"context"
	"fmt"
	"sync"
)

// fakeBackend is a scriptable in-memory Backend for tests.
type fakeBackend struct {
	mu sync.Mutex

	roots    []RawEntry
	rootsErr error

	entities  map[string]RawEntry
	entityErr map[string]error

	children    map[string][]RawEntry
	childrenErr map[string]error

	// jobStates holds the sequence of states returned by successive Job
	// calls for a given id; the last entry repeats once exhausted.
	jobStates map[string][]JobState
	jobPolls  map[string]int

	submitted []string
	submitID  string
	submitErr error

	results    map[string]ResultPage
	resultsErr error

	createErr error
	createRes RawEntry
	creates   []RawEntry

	updateErr  error
	updateRes  RawEntry
	updates    []RawEntry
	updateTags []string
}

func (f *fakeBackend) Roots(context.Context) ([]RawEntry, error) {
	return f.roots, f.rootsErr
}

func (f *fakeBackend) Entity(_ context.Context, id string) (RawEntry, error) {
	if err := f.entityErr[id]; err != nil {
		return nil, err
	}
	ent, ok := f.entities[id]
	if !ok {
		return nil, fmt.Errorf("fake: no entity %s", id)
	}
	return ent, nil
}

func (f *fakeBackend) Children(_ context.Context, id string) ([]RawEntry, error) {
	if err := f.childrenErr[id]; err != nil {
		return nil, err
	}
	return f.children[id], nil
}

func (f *fakeBackend) SubmitSQL(_ context.Context, sql string, _ []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, sql)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	if f.submitID == "" {
		return "job-1", nil
	}
	return f.submitID, nil
}

func (f *fakeBackend) Job(_ context.Context, id string) (Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	states := f.jobStates[id]
	if len(states) == 0 {
		return Job{}, fmt.Errorf("fake: no job %s", id)
	}
	if f.jobPolls == nil {
		f.jobPolls = make(map[string]int)
	}
	idx := f.jobPolls[id]
	f.jobPolls[id]++
	if idx >= len(states) {
		idx = len(states) - 1
	}
	return Job{ID: id, State: states[idx]}, nil
}

func (f *fakeBackend) JobResults(_ context.Context, id string, _, _ int) (ResultPage, error) {
	if f.resultsErr != nil {
		return ResultPage{}, f.resultsErr
	}
	return f.results[id], nil
}

func (f *fakeBackend) CreateEntity(_ context.Context, body RawEntry) (RawEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, body)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createRes, nil
}

func (f *fakeBackend) UpdateEntity(_ context.Context, _, tag string, body RawEntry) (RawEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, body)
	f.updateTags = append(f.updateTags, tag)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateRes, nil
}

// container builds a raw container entry.
func container(id, kind, name string) RawEntry {
	return RawEntry{"id": id, "type": kind, "name": name, "path": []any{name}}
}

// viewEntry builds a raw virtual-dataset entry.
func viewEntry(id string, path ...any) RawEntry {
	return RawEntry{"id": id, "type": "VIRTUAL_DATASET", "path": path}
}
