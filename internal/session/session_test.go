package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permisconnect/internal/models"
	rredis "permisconnect/pkg/redis"
)

var testProfile = models.Profile{ID: 7, Nom: "Martin", Prenom: "Léa", Email: "lea@mail.fr"}

func TestSession_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := &MemoryStore{}
	s := New(store, nil)
	require.NoError(t, s.Init(ctx))
	assert.False(t, s.IsAuthenticated())

	require.NoError(t, s.Authenticate(ctx, "tok", testProfile))
	require.NoError(t, s.SelectAutoEcole(ctx, models.AutoEcole{ID: 3, Nom: "Auto-École du Centre"}))
	require.NoError(t, s.RecordTestScore(ctx, 80))

	id, ok := s.ClientID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
	p, _ := s.Profile()
	require.NotNil(t, p.AutoEcole)
	assert.Equal(t, int64(3), p.AutoEcole.ID)

	// a second session on the same store sees everything
	reloaded := New(store, nil)
	require.NoError(t, reloaded.Init(ctx))
	assert.Equal(t, "tok", reloaded.Token())
	ae, ok := reloaded.SelectedAutoEcole()
	assert.True(t, ok)
	assert.Equal(t, "Auto-École du Centre", ae.Nom)

	require.NoError(t, reloaded.Clear(ctx))
	assert.False(t, reloaded.IsAuthenticated())
	assert.Empty(t, reloaded.Token())
	_, ok = reloaded.SelectedAutoEcole()
	assert.False(t, ok)
	score, ok := reloaded.LastTestScore()
	assert.True(t, ok)
	assert.Equal(t, 80.0, score)
}

func TestSession_FailedSaveKeepsState(t *testing.T) {
	ctx := context.Background()
	store := &MemoryStore{}
	s := New(store, nil)
	require.NoError(t, s.Authenticate(ctx, "tok", testProfile))
	require.NoError(t, s.CacheCourses(ctx, []models.Course{{ID: 1}, {ID: 2}}))

	store.Err = errors.New("disk full")
	err := s.MarkCoursePaid(ctx, 2)
	require.Error(t, err)

	assert.False(t, s.IsCoursePaid(2))
	assert.False(t, s.HasPaid())
	for _, c := range s.Snapshot().Courses {
		assert.False(t, c.EstGratuit)
	}

	store.Err = nil
	require.NoError(t, s.MarkCoursePaid(ctx, 2))
	require.NoError(t, s.MarkCoursePaid(ctx, 2))
	rec := s.Snapshot()
	assert.Equal(t, []int64{2}, rec.PaidCourses)
	assert.True(t, rec.HasPaid)
	assert.False(t, rec.Courses[0].EstGratuit)
	assert.True(t, rec.Courses[1].EstGratuit)
}

func TestSession_ClearWithFailedSaveStillDropsIdentity(t *testing.T) {
	ctx := context.Background()
	store := &MemoryStore{}
	s := New(store, nil)
	require.NoError(t, s.Authenticate(ctx, "tok", testProfile))
	require.NoError(t, s.SelectAutoEcole(ctx, models.AutoEcole{ID: 3}))
	require.NoError(t, s.RecordTestScore(ctx, 60))

	store.Err = errors.New("disk full")
	require.Error(t, s.Clear(ctx))

	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
	_, ok := s.SelectedAutoEcole()
	assert.False(t, ok)
	score, ok := s.LastTestScore()
	assert.True(t, ok)
	assert.Equal(t, 60.0, score)
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s := New(&MemoryStore{}, nil)
	require.NoError(t, s.Authenticate(ctx, "tok", testProfile))

	snap := s.Snapshot()
	snap.Profile.Nom = "changed"
	p, _ := s.Profile()
	assert.Equal(t, "Martin", p.Nom)
}

func TestSession_UnknownVersionIsDiscarded(t *testing.T) {
	ctx := context.Background()
	store := &MemoryStore{}
	require.NoError(t, store.Save(ctx, []byte(`{"version":99,"token":"old"}`)))

	s := New(store, nil)
	require.NoError(t, s.Init(ctx))
	assert.Empty(t, s.Token())
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	s := New(store, nil)
	require.NoError(t, s.Authenticate(ctx, "tok", testProfile))

	reloaded := New(NewFileStore(path), nil)
	require.NoError(t, reloaded.Init(ctx))
	assert.Equal(t, "tok", reloaded.Token())
}

type fakeKV struct {
	data map[string][]byte
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, rredis.ErrNil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.data[key] = value
	return nil
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	kv := &fakeKV{data: map[string][]byte{}}
	store := NewRedisStore(kv, "permisconnect:session")

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	s := New(store, nil)
	require.NoError(t, s.Authenticate(ctx, "tok", testProfile))
	assert.Contains(t, string(kv.data["permisconnect:session"]), `"token":"tok"`)
}
