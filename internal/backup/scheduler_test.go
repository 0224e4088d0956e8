package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/internal/repository/sqlite"
	"postboard/internal/storage"
)

type fakeSnapshotter struct {
	err   error
	calls int
}

func (f *fakeSnapshotter) Snapshot(ctx context.Context, dest string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte("snapshot"), 0o600)
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	listErr error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]byte)}
}

func (m *memoryStorage) UploadFile(ctx context.Context, localPath string, opts storage.UploadOptions) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[opts.Key] = data
	return "s3://" + opts.Bucket + "/" + opts.Key, nil
}

func (m *memoryStorage) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []storage.ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memoryStorage) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.objects, k)
	}
	return nil
}

func (m *memoryStorage) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// steppingClock advances one minute per call.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Minute)
		return current
	}
}

func TestRunOnceUploadsSnapshot(t *testing.T) {
	store := newMemoryStorage()
	snap := &fakeSnapshotter{}
	s := NewScheduler(Config{Bucket: "backups", KeyPrefix: "/postboard/", TempDir: t.TempDir(), Logger: quietLogger()}, snap, store)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }

	location, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s3://backups/postboard/snapshot-20260301T123000Z.db", location)
	assert.Equal(t, []byte("snapshot"), store.objects["postboard/snapshot-20260301T123000Z.db"])
	assert.Equal(t, 1, snap.calls)
}

func TestRunOncePrunesOldSnapshots(t *testing.T) {
	store := newMemoryStorage()
	store.objects["postboard/unrelated.txt"] = nil
	s := NewScheduler(Config{Bucket: "backups", KeyPrefix: "postboard", Retain: 2, TempDir: t.TempDir(), Logger: quietLogger()}, &fakeSnapshotter{}, store)
	s.now = steppingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	for i := 0; i < 4; i++ {
		_, err := s.RunOnce(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, []string{
		"postboard/snapshot-20260101T000300Z.db",
		"postboard/snapshot-20260101T000400Z.db",
		"postboard/unrelated.txt",
	}, store.keys())
}

func TestRunOnceKeepsEverythingWithoutRetain(t *testing.T) {
	store := newMemoryStorage()
	s := NewScheduler(Config{Bucket: "b", TempDir: t.TempDir(), Logger: quietLogger()}, &fakeSnapshotter{}, store)
	s.now = steppingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		_, err := s.RunOnce(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, store.keys(), 3)
	assert.True(t, strings.HasPrefix(store.keys()[0], "snapshot-"))
}

func TestRunOnceErrors(t *testing.T) {
	store := newMemoryStorage()
	snap := &fakeSnapshotter{err: errors.New("disk full")}
	s := NewScheduler(Config{Bucket: "b", TempDir: t.TempDir(), Logger: quietLogger()}, snap, store)

	_, err := s.RunOnce(context.Background())
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, store.keys())

	noBucket := NewScheduler(Config{Logger: quietLogger()}, &fakeSnapshotter{}, store)
	_, err = noBucket.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Error(t, noBucket.Start(context.Background()))
}

func TestRunOnceSurvivesPruneFailure(t *testing.T) {
	store := newMemoryStorage()
	store.listErr = errors.New("throttled")
	s := NewScheduler(Config{Bucket: "b", Retain: 1, TempDir: t.TempDir(), Logger: quietLogger()}, &fakeSnapshotter{}, store)

	_, err := s.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.Len(t, store.keys(), 1)
}

func TestSchedulerLoop(t *testing.T) {
	store := newMemoryStorage()
	s := NewScheduler(Config{Bucket: "b", Interval: 10 * time.Millisecond, TempDir: t.TempDir(), Logger: quietLogger()}, &fakeSnapshotter{}, store)
	s.now = steppingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()), "second start is refused")

	require.Eventually(t, func() bool { return len(store.keys()) >= 2 }, 2*time.Second, 5*time.Millisecond)
	s.Shutdown()

	settled := len(store.keys())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, len(store.keys()), "no uploads after shutdown")
}

func TestRunOnceWithSQLiteSnapshot(t *testing.T) {
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "postboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE notes (body TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO notes (body) VALUES ('hello')`)
	require.NoError(t, err)

	store := newMemoryStorage()
	s := NewScheduler(Config{Bucket: "b", TempDir: t.TempDir(), Logger: quietLogger()}, sqlite.NewSnapshotter(db), store)

	_, err = s.RunOnce(context.Background())
	require.NoError(t, err)

	keys := store.keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(string(store.objects[keys[0]]), "SQLite format 3"))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512B", formatBytes(512))
	assert.Equal(t, "1.5KiB", formatBytes(1536))
	assert.Equal(t, "2.0MiB", formatBytes(2*1024*1024))
}
