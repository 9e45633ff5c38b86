package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/roadblock/internal/models"
	"github.com/Skotchmaster/roadblock/internal/repo"
	pkgdb "github.com/Skotchmaster/roadblock/pkg/db"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	gdb, err := pkgdb.Open(context.Background(), "sqlite::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pkgdb.Close(gdb) })

	r := repo.New(gdb)
	require.NoError(t, r.Migrate(context.Background()))
	return r
}

type published struct {
	topic string
	key   string
	event Event
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, published{topic: topic, key: key, event: event.(Event)})
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.event.Type
	}
	return out
}

type fakeIndex struct {
	mu      sync.Mutex
	docs    map[uint]string
	hits    []uint
	failErr error
}

func newFakeIndex() *fakeIndex { return &fakeIndex{docs: map[uint]string{}} }

func (f *fakeIndex) IndexVehicle(_ context.Context, v *models.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[v.ID] = v.PlateNumber
	return nil
}

func (f *fakeIndex) DeleteVehicle(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) SearchVehicles(context.Context, string, int, int) (int64, []uint, error) {
	if f.failErr != nil {
		return 0, nil, f.failErr
	}
	return int64(len(f.hits)), f.hits, nil
}

var errBackend = errors.New("backend down")
