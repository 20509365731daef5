// Package migration implements the durable, resumable batched-blob-transfer
// engine (§4.12): a named Migration groups a set of per-blob Transfers that
// are run concurrently by a small worker pool and persisted to MetaDB so a
// crashed or interrupted run can be resumed.
package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aconbere/sssync/internal/sssync/hash"
	"github.com/aconbere/sssync/internal/sssync/metadb"
	"github.com/aconbere/sssync/internal/sssync/objstore"
	"github.com/aconbere/sssync/internal/sssync/transport"
)

// ErrTransferFailed is wrapped into the error returned by Run when any
// transfer in a strict (ignoreExisting=false) run fails.
var ErrTransferFailed = errors.New("migration: transfer failed")

// Config tunes the worker pool. Mirrors the teacher's defaults()-on-a-struct
// convention: zero values are filled in by Run.
type Config struct {
	Concurrency int
	Logger      *slog.Logger
}

func (c *Config) defaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// objectKey derives the remote key for a content hash, shared by every
// transport implementation: remote/.sssync/objects/<hash>.
func objectKey(objectHash string) string {
	return fmt.Sprintf(".sssync/objects/%s", objectHash)
}

// Create persists a new migration and one Waiting transfer per hash,
// returning the migration with its assigned ID.
func Create(db *metadb.DB, kind metadb.MigrationKind, remote metadb.Remote, hashes []string) (metadb.Migration, error) {
	m := metadb.Migration{
		Kind:           kind,
		RemoteName:     remote.Name,
		RemoteKind:     remote.Kind,
		RemoteLocation: remote.Location,
		State:          metadb.MigrationWaiting,
	}
	id, err := db.InsertMigration(m)
	if err != nil {
		return metadb.Migration{}, fmt.Errorf("migration: create: %w", err)
	}
	m.ID = id

	for _, h := range hashes {
		t := metadb.Transfer{
			MigrationID: id,
			ObjectHash:  h,
			State:       metadb.TransferWaiting,
			Kind:        kind,
		}
		if err := db.InsertTransfer(t); err != nil {
			return metadb.Migration{}, fmt.Errorf("migration: create: %w", err)
		}
	}

	return m, nil
}

// Run dispatches migration's waiting (and previously failed, making the
// run resumable) transfers to the upload or download flow matching its
// kind, using up to cfg.Concurrency workers. force and ignoreExisting have
// the meanings §4.12 gives them; Run returns ErrTransferFailed wrapping the
// migration's new Failed state when any transfer fails and ignoreExisting
// is false.
func Run(ctx context.Context, db *metadb.DB, store *objstore.Store, bt transport.BlobTransport, migration metadb.Migration, force, ignoreExisting bool, cfg Config) error {
	cfg.defaults()

	if err := db.SetMigrationState(migration.ID, metadb.MigrationRunning); err != nil {
		return fmt.Errorf("migration: run %d: %w", migration.ID, err)
	}

	transfers, err := db.GetWaitingForMigration(migration.ID)
	if err != nil {
		return fmt.Errorf("migration: run %d: %w", migration.ID, err)
	}

	jobs := make(chan metadb.Transfer)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed bool

	worker := func() {
		defer wg.Done()
		for t := range jobs {
			var runErr error
			switch migration.Kind {
			case metadb.MigrationUpload:
				runErr = upload(ctx, store, bt, t.ObjectHash, force, ignoreExisting)
			case metadb.MigrationDownload:
				runErr = download(ctx, store, bt, t.ObjectHash, force, ignoreExisting)
			default:
				runErr = fmt.Errorf("migration: unknown kind %q", migration.Kind)
			}

			if runErr != nil {
				cfg.Logger.Error("transfer failed", "migration", migration.ID, "hash", t.ObjectHash, "error", runErr)
				if err := db.SetTransferState(migration.ID, t.ObjectHash, metadb.TransferFailed); err != nil {
					cfg.Logger.Error("failed to record transfer failure", "migration", migration.ID, "hash", t.ObjectHash, "error", err)
				}
				mu.Lock()
				failed = true
				mu.Unlock()
				continue
			}

			if err := db.SetTransferState(migration.ID, t.ObjectHash, metadb.TransferComplete); err != nil {
				cfg.Logger.Error("failed to record transfer success", "migration", migration.ID, "hash", t.ObjectHash, "error", err)
			}
		}
	}

	for range cfg.Concurrency {
		wg.Add(1)
		go worker()
	}

	for _, t := range transfers {
		if err := db.SetTransferState(migration.ID, t.ObjectHash, metadb.TransferRunning); err != nil {
			return fmt.Errorf("migration: run %d: %w", migration.ID, err)
		}
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	if failed && !ignoreExisting {
		if err := db.SetMigrationState(migration.ID, metadb.MigrationFailed); err != nil {
			return fmt.Errorf("migration: run %d: %w", migration.ID, err)
		}
		return fmt.Errorf("migration: run %d: %w", migration.ID, ErrTransferFailed)
	}

	if err := db.SetMigrationState(migration.ID, metadb.MigrationComplete); err != nil {
		return fmt.Errorf("migration: run %d: %w", migration.ID, err)
	}
	return nil
}

// upload pushes objectHash's blob from store to bt via put_object_multipart,
// which itself skips (returning ErrObjectExists) when force is false and the
// object already exists remotely. Per §4.12, that skip only counts as
// success when ignoreExisting is set — otherwise it is a real failure, the
// same as any other transport error.
func upload(ctx context.Context, store *objstore.Store, bt transport.BlobTransport, objectHash string, force, ignoreExisting bool) error {
	h, err := hash.Parse(objectHash)
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectHash, err)
	}

	size, err := store.Size(h)
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectHash, err)
	}
	r, err := store.Open(h)
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectHash, err)
	}
	defer r.Close()

	err = bt.PutObjectMultipart(ctx, objectKey(objectHash), r, size, force)
	if err != nil {
		if errors.Is(err, transport.ErrObjectExists) && ignoreExisting {
			return nil
		}
		return fmt.Errorf("upload %s: %w", objectHash, err)
	}
	return nil
}

// download pulls objectHash's blob from bt into store. If it already exists
// locally: skip when ignoreExisting, fail when force is false, overwrite
// when force.
func download(ctx context.Context, store *objstore.Store, bt transport.BlobTransport, objectHash string, force, ignoreExisting bool) error {
	h, err := hash.Parse(objectHash)
	if err != nil {
		return fmt.Errorf("download %s: %w", objectHash, err)
	}

	if store.Exists(h) {
		switch {
		case ignoreExisting:
			return nil
		case !force:
			return fmt.Errorf("download %s: %w", objectHash, objstore.ErrAlreadyExists)
		}
	}

	pr, pw := io.Pipe()
	errCh := make(chan error, 1)
	go func() {
		errCh <- bt.GetObject(ctx, objectKey(objectHash), pw)
		pw.Close()
	}()

	if err := store.InsertFromReader(h, pr); err != nil {
		return fmt.Errorf("download %s: %w", objectHash, err)
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("download %s: %w", objectHash, err)
	}
	return nil
}
