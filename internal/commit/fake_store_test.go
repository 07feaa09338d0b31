package commit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/service"
)

var (
	errStorage = errors.New("storage constraint violated")
	errTxDone  = errors.New("transaction has already been committed or rolled back")
)

type write struct {
	op       string
	kind     string
	title    string
	parentID string
	id       string
	payload  model.Payload
}

// fakeStore keeps committed writes in memory. Writes made through a transaction are only
// visible after Commit.
type fakeStore struct {
	failContainers map[string]bool // by title
	failFacts      map[string]bool // by payload title
	failFields     map[string]bool // by field name
	failCommits    map[string]bool // by title of a pending write
	writes         []write
	begun          int
	rollbacks      int
	mu             sync.Mutex
	next           int
}

var _ service.RecordStorage = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		failContainers: map[string]bool{},
		failFacts:      map[string]bool{},
		failFields:     map[string]bool{},
		failCommits:    map[string]bool{},
	}
}

func (s *fakeStore) newID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s-%d", prefix, s.next)
}

func (s *fakeStore) record(w write) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, w)
}

func (s *fakeStore) Writes() []write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]write(nil), s.writes...)
}

func (s *fakeStore) byOp(op string) []write {
	var out []write
	for _, w := range s.Writes() {
		if w.op == op {
			out = append(out, w)
		}
	}
	return out
}

func (s *fakeStore) CreateContainer(_ context.Context, t model.ContainerType, title, parentID string) (string, error) {
	if s.failContainers[title] {
		return "", errStorage
	}
	id := s.newID("container")
	s.record(write{op: "container", kind: string(t), title: title, parentID: parentID, id: id})
	return id, nil
}

func (s *fakeStore) CreateFact(ctx context.Context, kind string, payload model.Payload, parentID string) (string, error) {
	tx, _ := s.BeginRecordTx(ctx)
	id, err := tx.CreateFact(ctx, kind, payload, parentID)
	if err != nil {
		return "", err
	}
	return id, tx.Commit()
}

func (s *fakeStore) RecordEvent(ctx context.Context, eventType string, payload model.Payload, parentID string) (string, error) {
	tx, _ := s.BeginRecordTx(ctx)
	id, err := tx.RecordEvent(ctx, eventType, payload, parentID)
	if err != nil {
		return "", err
	}
	return id, tx.Commit()
}

func (s *fakeStore) SetFieldValue(ctx context.Context, entityID, field, value string) error {
	tx, _ := s.BeginRecordTx(ctx)
	if err := tx.SetFieldValue(ctx, entityID, field, value); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *fakeStore) BeginRecordTx(context.Context) (service.RecordTx, error) {
	s.mu.Lock()
	s.begun++
	s.mu.Unlock()
	return &fakeTx{store: s}, nil
}

type fakeTx struct {
	store   *fakeStore
	pending []write
	done    bool
}

func (t *fakeTx) CreateContainer(ctx context.Context, typ model.ContainerType, title, parentID string) (string, error) {
	return t.store.CreateContainer(ctx, typ, title, parentID)
}

func (t *fakeTx) CreateFact(_ context.Context, kind string, payload model.Payload, parentID string) (string, error) {
	if t.store.failFacts[payload["title"]] {
		return "", errStorage
	}
	id := t.store.newID("fact")
	t.pending = append(t.pending, write{op: "fact", kind: kind, title: payload["title"], parentID: parentID, id: id, payload: payload})
	return id, nil
}

func (t *fakeTx) RecordEvent(_ context.Context, eventType string, payload model.Payload, parentID string) (string, error) {
	id := t.store.newID("event")
	t.pending = append(t.pending, write{op: "event", kind: eventType, title: payload["title"], parentID: parentID, id: id, payload: payload})
	return id, nil
}

func (t *fakeTx) SetFieldValue(_ context.Context, entityID, field, value string) error {
	if t.store.failFields[field] {
		return errStorage
	}
	t.pending = append(t.pending, write{op: "field", kind: field, title: value, parentID: entityID})
	return nil
}

func (t *fakeTx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	for _, w := range t.pending {
		if t.store.failCommits[w.title] {
			t.pending = nil
			return errStorage
		}
	}
	for _, w := range t.pending {
		t.store.record(w)
	}
	t.pending = nil
	return nil
}

func (t *fakeTx) Rollback() error {
	t.store.mu.Lock()
	t.store.rollbacks++
	t.store.mu.Unlock()
	if t.done {
		return errTxDone
	}
	t.done = true
	t.pending = nil
	return nil
}

// recordingObserver counts callbacks.
type recordingObserver struct {
	containers map[string]string
	items      map[string]string
	failures   map[string]error
	mu         sync.Mutex
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		containers: map[string]string{},
		items:      map[string]string{},
		failures:   map[string]error{},
	}
}

func (o *recordingObserver) ContainerCreated(tempID, durableID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.containers[tempID] = durableID
}

func (o *recordingObserver) ItemCommitted(tempID, durableID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[tempID] = durableID
}

func (o *recordingObserver) ItemFailed(tempID string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[tempID] = err
}
