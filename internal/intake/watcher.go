// Package intake watches an inbox directory and registers dropped files as
// queued datasets, then runs ingestion on them. It is disabled unless an
// intake directory is configured.
package intake

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/usagehub/internal/config"
	datasetdomain "github.com/smallbiznis/usagehub/internal/dataset/domain"
	ingestdomain "github.com/smallbiznis/usagehub/internal/ingest/domain"
	storagedomain "github.com/smallbiznis/usagehub/internal/storage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// settleDelay gives the writer time to finish before the file is read.
const settleDelay = 500 * time.Millisecond

type Params struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Blob     storagedomain.BlobStore
	Datasets datasetdomain.Service
	Ingest   ingestdomain.Service
}

type Watcher struct {
	dir       string
	accountID snowflake.ID
	log       *zap.Logger
	blob      storagedomain.BlobStore
	datasets  datasetdomain.Service
	ingest    ingestdomain.Service

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewWatcher(p Params) *Watcher {
	return &Watcher{
		dir:       p.Config.Intake.Dir,
		accountID: snowflake.ID(p.Config.DefaultAccountID),
		log:       p.Log.Named("intake.watcher"),
		blob:      p.Blob,
		datasets:  p.Datasets,
		ingest:    p.Ingest,
		inFlight:  make(map[string]struct{}),
	}
}

// RunForever blocks on filesystem events until the context is canceled.
func (w *Watcher) RunForever(ctx context.Context) error {
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer notify.Close()

	if err := notify.Add(w.dir); err != nil {
		return err
	}
	w.log.Info("watching intake directory", zap.String("dir", w.dir))

	// Files are handled off the event loop so a burst of drops does not
	// back up the notify channel behind a slow ingestion run.
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-notify.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !supportedFile(event.Name) {
				continue
			}
			w.dispatch(ctx, &wg, event.Name)
		case err, ok := <-notify.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("intake watch error", zap.Error(err))
		}
	}
}

// dispatch hands a file to a worker goroutine. A path already being handled
// is skipped, since a single drop can surface as both Create and Rename.
func (w *Watcher) dispatch(ctx context.Context, wg *sync.WaitGroup, path string) {
	w.mu.Lock()
	if _, busy := w.inFlight[path]; busy {
		w.mu.Unlock()
		return
	}
	w.inFlight[path] = struct{}{}
	w.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.inFlight, path)
			w.mu.Unlock()
		}()
		w.handleFile(ctx, path)
	}()
}

func (w *Watcher) handleFile(ctx context.Context, path string) {
	time.Sleep(settleDelay)

	data, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn("unreadable intake file", zap.String("path", path), zap.Error(err))
		return
	}

	filename := filepath.Base(path)
	storagePath, err := w.blob.Upload(ctx, filename, data)
	if err != nil {
		w.log.Error("intake upload failed", zap.String("path", path), zap.Error(err))
		return
	}

	ds, err := w.datasets.Create(ctx, datasetdomain.CreateRequest{
		AccountID:        w.accountID,
		OriginalFilename: filename,
		StoragePath:      storagePath,
	})
	if err != nil {
		w.log.Error("intake dataset create failed", zap.String("path", path), zap.Error(err))
		return
	}

	result := w.ingest.Run(ctx, ingestdomain.RunRequest{DatasetID: ds.ID, AccountID: w.accountID})
	w.log.Info("intake file ingested",
		zap.String("path", path),
		zap.String("dataset_id", ds.ID.String()),
		zap.String("status", string(result.Status)),
	)

	if err := os.Remove(path); err != nil {
		w.log.Warn("unable to remove ingested intake file", zap.String("path", path), zap.Error(err))
	}
}

func supportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt", ".xlsx", ".xlsm":
		return true
	}
	return false
}

func registerHooks(lc fx.Lifecycle, w *Watcher, cfg config.Config, log *zap.Logger) {
	if cfg.Intake.Dir == "" {
		return
	}
	if cfg.DefaultAccountID == 0 {
		log.Warn("intake directory configured without DEFAULT_ACCOUNT, watcher disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := w.RunForever(ctx); err != nil {
					log.Error("intake watcher stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

var Module = fx.Module("intake",
	fx.Provide(NewWatcher),
	fx.Invoke(registerHooks),
)
