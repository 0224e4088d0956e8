// Package backup periodically snapshots the database and ships the copies to
// object storage, keeping a bounded number of them.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"postboard/internal/storage"
)

const (
	snapshotPrefix = "snapshot-"
	snapshotSuffix = ".db"
	// timestampLayout sorts lexically in time order.
	timestampLayout = "20060102T150405Z"
)

// Snapshotter writes a consistent copy of the database to dest.
type Snapshotter interface {
	Snapshot(ctx context.Context, dest string) error
}

type Config struct {
	Bucket    string
	KeyPrefix string
	Interval  time.Duration
	// Retain is how many snapshots survive a prune; zero keeps all of them.
	Retain  int
	TempDir string
	Logger  *logrus.Logger
}

// Scheduler runs snapshot uploads on a fixed interval.
type Scheduler struct {
	cfg     Config
	db      Snapshotter
	storage storage.Service
	now     func() time.Time

	runMu  sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewScheduler(cfg Config, db Snapshotter, store storage.Service) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Retain < 0 {
		cfg.Retain = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	return &Scheduler{
		cfg:     cfg,
		db:      db,
		storage: store,
		now:     time.Now,
	}
}

// Start launches the background loop. The first snapshot is taken one
// interval after Start.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Bucket == "" {
		return fmt.Errorf("backup bucket is required")
	}
	if s.cancel != nil {
		return fmt.Errorf("backup scheduler already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(loopCtx)
	}()

	s.cfg.Logger.Infof("backup scheduler started, every %s to s3://%s/%s", s.cfg.Interval, s.cfg.Bucket, s.cfg.KeyPrefix)
	return nil
}

// Shutdown stops the loop and waits for an in-flight snapshot to finish.
func (s *Scheduler) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.cfg.Logger.Info("backup scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.cfg.Logger.Errorf("backup failed: %v", err)
			}
		}
	}
}

// RunOnce snapshots the database, uploads the copy and prunes old snapshots.
// It returns the uploaded object's location.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cfg.Bucket == "" {
		return "", fmt.Errorf("backup bucket is required")
	}

	dir, err := os.MkdirTemp(s.cfg.TempDir, "postboard-backup-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	name := snapshotPrefix + s.now().UTC().Format(timestampLayout) + snapshotSuffix
	local := filepath.Join(dir, name)
	if err := s.db.Snapshot(ctx, local); err != nil {
		return "", fmt.Errorf("snapshot database: %w", err)
	}

	logger := s.cfg.Logger.WithField("snapshot", name)
	location, err := s.storage.UploadFile(ctx, local, storage.UploadOptions{
		Bucket:           s.cfg.Bucket,
		Key:              path.Join(s.cfg.KeyPrefix, name),
		ContentType:      "application/vnd.sqlite3",
		ProgressCallback: newUploadProgressLogger(logger),
	})
	if err != nil {
		return "", err
	}
	logger.Infof("snapshot uploaded to %s", location)

	if err := s.prune(ctx); err != nil {
		// the upload itself succeeded
		logger.Warnf("prune old snapshots: %v", err)
	}
	return location, nil
}

// prune deletes all but the newest Retain snapshots under the key prefix.
func (s *Scheduler) prune(ctx context.Context) error {
	if s.cfg.Retain == 0 {
		return nil
	}

	prefix := snapshotPrefix
	if s.cfg.KeyPrefix != "" {
		prefix = s.cfg.KeyPrefix + "/" + snapshotPrefix
	}
	objects, err := s.storage.ListObjects(ctx, s.cfg.Bucket, prefix)
	if err != nil {
		return err
	}

	var snapshots []string
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, snapshotSuffix) {
			snapshots = append(snapshots, obj.Key)
		}
	}
	sort.Strings(snapshots)
	if len(snapshots) <= s.cfg.Retain {
		return nil
	}

	stale := snapshots[:len(snapshots)-s.cfg.Retain]
	if err := s.storage.DeleteObjects(ctx, s.cfg.Bucket, stale); err != nil {
		return err
	}
	s.cfg.Logger.Infof("pruned %d old snapshots", len(stale))
	return nil
}

func newUploadProgressLogger(logger *logrus.Entry) func(done, total int64) {
	var lastLog time.Time
	return func(done, total int64) {
		now := time.Now()
		if now.Sub(lastLog) < 500*time.Millisecond && done != total {
			return
		}
		lastLog = now
		if total == 0 {
			logger.Debugf("upload progress: %s uploaded", formatBytes(done))
			return
		}
		percent := float64(done) / float64(total) * 100
		logger.Debugf("upload progress: %.1f%% (%s/%s)", percent, formatBytes(done), formatBytes(total))
	}
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB",
		float64(b)/float64(div),
		"KMGTPE"[exp],
	)
}
