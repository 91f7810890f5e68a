/*
 * Copyright 2023 The Meadowlark Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package badger implements the database interface on an embedded badger
// key-value store. Writes run in optimistic transactions and are retried when
// they conflict with a concurrent write.
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server/backend/database"
	"github.com/meadowlark-team/meadowlark/server/logging"
)

const (
	defaultMaxConflictRetries = 10
	gcDiscardRatio            = 0.5
)

// DB is a database backed by badger.
type DB struct {
	config *Config
	db     *badger.DB
	logger logging.Logger

	stopGC chan struct{}
	wg     sync.WaitGroup
}

// loggerAdapter adapts logging.Logger to the badger.Logger interface.
type loggerAdapter struct {
	logger logging.Logger
}

var _ badger.Logger = (*loggerAdapter)(nil)

func (l *loggerAdapter) Errorf(msg string, items ...any) {
	l.logger.Errorf(msg, items...)
}

func (l *loggerAdapter) Warningf(msg string, items ...any) {
	l.logger.Warnf(msg, items...)
}

func (l *loggerAdapter) Infof(msg string, items ...any) {
	l.logger.Infof(msg, items...)
}

func (l *loggerAdapter) Debugf(msg string, items ...any) {
	l.logger.Debugf(msg, items...)
}

// Open opens the badger store of the given configuration, creating the
// directory if it does not exist.
func Open(conf *Config) (*DB, error) {
	logger := logging.New("badger")

	var opts badger.Options
	if conf.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(conf.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", conf.Path, err)
		}
		opts = badger.DefaultOptions(conf.Path)
	}
	opts.Logger = &loggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	d := &DB{
		config: conf,
		db:     db,
		logger: logger,
		stopGC: make(chan struct{}),
	}

	if interval := conf.ParseGCInterval(); interval > 0 && !conf.InMemory {
		d.wg.Add(1)
		go d.runGC(interval)
	}

	logger.Infof("badger opened, in-memory: %t, path: %s", conf.InMemory, conf.Path)

	return d, nil
}

// Close closes the store.
func (d *DB) Close() error {
	close(d.stopGC)
	d.wg.Wait()

	if err := d.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	return nil
}

func (d *DB) runGC(interval time.Duration) {
	defer d.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// RunValueLogGC returns ErrNoRewrite once there is nothing to collect.
			for d.db.RunValueLogGC(gcDiscardRatio) == nil {
			}
		case <-d.stopGC:
			return
		}
	}
}

// update runs fn in a read-write transaction, retrying when the commit
// conflicts with a concurrent transaction.
func (d *DB) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	retries := d.config.MaxConflictRetries
	if retries == 0 {
		retries = defaultMaxConflictRetries
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := d.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if attempt >= retries {
			return fmt.Errorf("after %d retries: %w", retries, database.ErrConflictOnWrite)
		}
	}
}

func encodeDocInfo(info *database.DocInfo) ([]byte, error) {
	data, err := bson.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("marshal document of %s: %w", info.ID, err)
	}
	return data, nil
}

func decodeDocInfo(data []byte) (*database.DocInfo, error) {
	dec := bson.NewDecoder(bson.NewDocumentReader(bytes.NewReader(data)))
	dec.DefaultDocumentM()

	info := &database.DocInfo{}
	if err := dec.Decode(info); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	info.EdfiDoc = database.CopyBody(info.EdfiDoc)
	info.CreatedAt = info.CreatedAt.UTC()
	info.LastModifiedAt = info.LastModifiedAt.UTC()
	return info, nil
}

func readDocInfo(txn *badger.Txn, id types.MeadowlarkID) (*database.DocInfo, error) {
	item, err := txn.Get(docKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("find document of %s: %w", id, database.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find document of %s: %w", id, err)
	}

	var info *database.DocInfo
	if err := item.Value(func(val []byte) error {
		info, err = decodeDocInfo(val)
		return err
	}); err != nil {
		return nil, fmt.Errorf("find document of %s: %w", id, err)
	}
	return info, nil
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func writeDocInfo(txn *badger.Txn, info *database.DocInfo) error {
	data, err := encodeDocInfo(info)
	if err != nil {
		return err
	}

	if err := txn.Set(docKey(info.ID), data); err != nil {
		return err
	}
	if err := txn.Set(uuidKey(info.DocumentUUID), []byte(info.ID)); err != nil {
		return err
	}
	if err := txn.Set(resourceKey(info.ResourceInfo, info.ID), nil); err != nil {
		return err
	}
	for _, ref := range info.OutboundRefs {
		if err := txn.Set(refKey(ref, info.ID), nil); err != nil {
			return err
		}
	}
	return nil
}

func removeDocInfo(txn *badger.Txn, info *database.DocInfo) error {
	if err := txn.Delete(docKey(info.ID)); err != nil {
		return err
	}
	if err := txn.Delete(uuidKey(info.DocumentUUID)); err != nil {
		return err
	}
	if err := txn.Delete(resourceKey(info.ResourceInfo, info.ID)); err != nil {
		return err
	}
	for _, ref := range info.OutboundRefs {
		if err := txn.Delete(refKey(ref, info.ID)); err != nil {
			return err
		}
	}
	return nil
}

// checkRequiredRefs fails unless every ref exists. The record of each ref is
// written back unchanged, so the commit of a concurrent delete of a ref
// conflicts with this transaction.
func checkRequiredRefs(txn *badger.Txn, refs []types.MeadowlarkID) error {
	missing := 0
	for _, ref := range refs {
		item, err := txn.Get(docKey(ref))
		if errors.Is(err, badger.ErrKeyNotFound) {
			missing++
			continue
		}
		if err != nil {
			return err
		}

		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Set(docKey(ref), val); err != nil {
			return err
		}
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d: %w", missing, len(refs), database.ErrReferencesNotFound)
	}
	return nil
}

// FindDocInfoByID returns the document of the given id.
func (d *DB) FindDocInfoByID(
	_ context.Context,
	id types.MeadowlarkID,
) (*database.DocInfo, error) {
	var info *database.DocInfo
	err := d.db.View(func(txn *badger.Txn) error {
		var err error
		info, err = readDocInfo(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// FindDocInfoByDocumentUUID returns the document of the given uuid.
func (d *DB) FindDocInfoByDocumentUUID(
	_ context.Context,
	documentUUID types.DocumentUUID,
) (*database.DocInfo, error) {
	var info *database.DocInfo
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(uuidKey(documentUUID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("find document of uuid %s: %w", documentUUID, database.ErrDocumentNotFound)
		}
		if err != nil {
			return fmt.Errorf("find document of uuid %s: %w", documentUUID, err)
		}

		id, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("find document of uuid %s: %w", documentUUID, err)
		}

		info, err = readDocInfo(txn, types.MeadowlarkID(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// FindExistingIDs returns the given ids that are present in the store.
func (d *DB) FindExistingIDs(
	_ context.Context,
	ids []types.MeadowlarkID,
) ([]types.MeadowlarkID, error) {
	existing := make([]types.MeadowlarkID, 0, len(ids))
	err := d.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			ok, err := exists(txn, docKey(id))
			if err != nil {
				return fmt.Errorf("find document of %s: %w", id, err)
			}
			if ok {
				existing = append(existing, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// InsertDocInfo inserts a new document.
func (d *DB) InsertDocInfo(
	ctx context.Context,
	info *database.DocInfo,
	opts database.WriteOptions,
) error {
	return d.update(ctx, func(txn *badger.Txn) error {
		ok, err := exists(txn, docKey(info.ID))
		if err != nil {
			return fmt.Errorf("insert document of %s: %w", info.ID, err)
		}
		if ok {
			return fmt.Errorf("insert document of %s: %w", info.ID, database.ErrDocumentAlreadyExists)
		}

		ok, err = exists(txn, uuidKey(info.DocumentUUID))
		if err != nil {
			return fmt.Errorf("insert document of %s: %w", info.ID, err)
		}
		if ok {
			return fmt.Errorf("insert document of uuid %s: %w", info.DocumentUUID, database.ErrDocumentAlreadyExists)
		}

		if err := checkRequiredRefs(txn, opts.RequiredRefs); err != nil {
			return fmt.Errorf("insert document of %s: %w", info.ID, err)
		}

		if err := writeDocInfo(txn, info); err != nil {
			return fmt.Errorf("insert document of %s: %w", info.ID, err)
		}
		return nil
	})
}

// ReplaceDocInfo replaces the document of the id and uuid of the given info.
func (d *DB) ReplaceDocInfo(
	ctx context.Context,
	info *database.DocInfo,
	opts database.WriteOptions,
) error {
	return d.update(ctx, func(txn *badger.Txn) error {
		prev, err := readDocInfo(txn, info.ID)
		if err != nil {
			return fmt.Errorf("replace document: %w", err)
		}
		if prev.DocumentUUID != info.DocumentUUID {
			return fmt.Errorf("replace document of %s: %w", info.ID, database.ErrDocumentNotFound)
		}

		if err := checkRequiredRefs(txn, opts.RequiredRefs); err != nil {
			return fmt.Errorf("replace document of %s: %w", info.ID, err)
		}

		if err := removeDocInfo(txn, prev); err != nil {
			return fmt.Errorf("replace document of %s: %w", info.ID, err)
		}
		if err := writeDocInfo(txn, info); err != nil {
			return fmt.Errorf("replace document of %s: %w", info.ID, err)
		}
		return nil
	})
}

// DeleteDocInfo deletes the document of the given id.
func (d *DB) DeleteDocInfo(
	ctx context.Context,
	id types.MeadowlarkID,
	opts database.DeleteOptions,
) error {
	return d.update(ctx, func(txn *badger.Txn) error {
		info, err := readDocInfo(txn, id)
		if err != nil {
			return fmt.Errorf("delete document: %w", err)
		}

		if opts.ForbidReferenced {
			referenced, err := hasReferrer(txn, id)
			if err != nil {
				return fmt.Errorf("delete document of %s: %w", id, err)
			}
			if referenced {
				return fmt.Errorf("delete document of %s: %w", id, database.ErrDocumentReferenced)
			}
		}

		if err := removeDocInfo(txn, info); err != nil {
			return fmt.Errorf("delete document of %s: %w", id, err)
		}
		return nil
	})
}

func hasReferrer(txn *badger.Txn, id types.MeadowlarkID) (bool, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = refKeyPrefix(id)
	iter := txn.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		source := sourceOfRefKey(iter.Item().Key(), id)
		// ref keys of a deleted referrer are removed with it, but a
		// self-reference does not block its own delete.
		if source != id {
			return true, nil
		}
	}
	return false, nil
}

// FindReferringDocInfos returns the documents referencing the given id.
func (d *DB) FindReferringDocInfos(
	_ context.Context,
	id types.MeadowlarkID,
	limit int,
) ([]*database.DocInfo, error) {
	var infos []*database.DocInfo
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = refKeyPrefix(id)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		var sources []types.MeadowlarkID
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if limit > 0 && len(sources) >= limit {
				break
			}
			sources = append(sources, sourceOfRefKey(iter.Item().KeyCopy(nil), id))
		}

		for _, source := range sources {
			info, err := readDocInfo(txn, source)
			if errors.Is(err, database.ErrDocumentNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			infos = append(infos, info)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find documents referring %s: %w", id, err)
	}
	return infos, nil
}

// FindDocInfosByResource returns a page of the documents of the resource.
func (d *DB) FindDocInfosByResource(
	_ context.Context,
	resourceInfo types.ResourceInfo,
	lastID types.MeadowlarkID,
	limit int,
) ([]*database.DocInfo, error) {
	var infos []*database.DocInfo
	err := d.db.View(func(txn *badger.Txn) error {
		prefix := resourceKeyPrefix(resourceInfo)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		iter := txn.NewIterator(opts)
		defer iter.Close()

		var ids []types.MeadowlarkID
		for iter.Seek(resourceKey(resourceInfo, lastID)); iter.ValidForPrefix(prefix); iter.Next() {
			if limit > 0 && len(ids) >= limit {
				break
			}
			id := types.MeadowlarkID(iter.Item().Key()[len(prefix):])
			if id == lastID {
				continue
			}
			ids = append(ids, id)
		}

		for _, id := range ids {
			info, err := readDocInfo(txn, id)
			if err != nil {
				return err
			}
			infos = append(infos, info)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find documents of %s: %w", resourceInfo, err)
	}
	return infos, nil
}
