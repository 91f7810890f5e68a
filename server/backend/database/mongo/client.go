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

// Package mongo implements database interfaces using MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/meadowlark-team/meadowlark/api/types"
	"github.com/meadowlark-team/meadowlark/server/backend/database"
	"github.com/meadowlark-team/meadowlark/server/logging"
)

const (
	defaultCacheSize = 10000

	// lockKey is the field written to referenced documents inside a
	// transaction, so that a concurrent delete of one of them conflicts with
	// the transaction instead of leaving a dangling reference.
	lockKey = "lock"
)

// Client is a client that connects to Mongo DB and reads or saves documents.
type Client struct {
	config *Config
	client *mongo.Client

	// uuidCache maps DocumentUUIDs to MeadowlarkIDs. The mapping never
	// changes once assigned, so entries are only evicted, never updated.
	uuidCache *lru.Cache[types.DocumentUUID, types.MeadowlarkID]
}

// Dial creates an instance of Client and dials the given MongoDB.
func Dial(conf *Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.ParseConnectionTimeout())
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(conf.ConnectionURI).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	if conf.MonitoringEnabled {
		var threshold time.Duration
		if conf.MonitoringSlowQueryThreshold != "" {
			parsed, err := time.ParseDuration(conf.MonitoringSlowQueryThreshold)
			if err != nil {
				return nil, fmt.Errorf("parse slow query threshold: %w", err)
			}
			threshold = parsed
		}
		clientOptions.SetMonitor(newCommandMonitor(threshold))
	}

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(ctx, conf.ParsePingTimeout())
	defer cancelPing()

	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	if err := ensureIndexes(ctx, client.Database(conf.Database)); err != nil {
		return nil, err
	}

	cacheSize := conf.CacheSize
	if cacheSize == 0 {
		cacheSize = defaultCacheSize
	}
	uuidCache, err := lru.New[types.DocumentUUID, types.MeadowlarkID](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("initialize uuid cache: %w", err)
	}

	logging.DefaultLogger().Infof(
		"MongoDB connected, URI: %s, DB: %s, transactions: %t",
		conf.ConnectionURI,
		conf.Database,
		conf.UseTransactions,
	)

	return &Client{
		config:    conf,
		client:    client,
		uuidCache: uuidCache,
	}, nil
}

// Close all resources of this client.
func (c *Client) Close() error {
	if err := c.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("close mongo client: %w", err)
	}

	c.uuidCache.Purge()

	return nil
}

// DropDatabase drops the database of this client. It is used by tests.
func (c *Client) DropDatabase(ctx context.Context) error {
	if err := c.client.Database(c.config.Database).Drop(ctx); err != nil {
		return fmt.Errorf("drop database %s: %w", c.config.Database, err)
	}
	c.uuidCache.Purge()
	return nil
}

func (c *Client) collection(name string, opts ...options.Lister[options.CollectionOptions]) *mongo.Collection {
	return c.client.Database(c.config.Database).Collection(name, opts...)
}

// withTransaction runs fn in a multi-document transaction when transactions
// are enabled and the write needs one. Otherwise fn runs on its own and the
// reference checks it makes are not atomic with its write.
func (c *Client) withTransaction(
	ctx context.Context,
	needed bool,
	fn func(ctx context.Context) error,
) error {
	if !c.config.UseTransactions || !needed {
		return fn(ctx)
	}

	session, err := c.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	if isTransient(err) {
		return fmt.Errorf("%s: %w", err.Error(), database.ErrConflictOnWrite)
	}
	return err
}

func isTransient(err error) bool {
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		return serverErr.HasErrorLabel("TransientTransactionError")
	}
	return false
}

func decodeDocInfo(result *mongo.SingleResult) (*database.DocInfo, error) {
	info := &database.DocInfo{}
	if err := result.Decode(info); err != nil {
		return nil, err
	}
	normalize(info)
	return info, nil
}

func normalize(info *database.DocInfo) {
	info.EdfiDoc = database.CopyBody(info.EdfiDoc)
	info.CreatedAt = info.CreatedAt.UTC()
	info.LastModifiedAt = info.LastModifiedAt.UTC()
}

// FindDocInfoByID returns the document of the given id.
func (c *Client) FindDocInfoByID(
	ctx context.Context,
	id types.MeadowlarkID,
) (*database.DocInfo, error) {
	result := c.collection(ColDocuments).FindOne(ctx, bson.M{"_id": id})
	if errors.Is(result.Err(), mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("find document of %s: %w", id, database.ErrDocumentNotFound)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("find document of %s: %w", id, result.Err())
	}

	info, err := decodeDocInfo(result)
	if err != nil {
		return nil, fmt.Errorf("decode document of %s: %w", id, err)
	}
	return info, nil
}

// FindDocInfoByDocumentUUID returns the document of the given uuid.
func (c *Client) FindDocInfoByDocumentUUID(
	ctx context.Context,
	documentUUID types.DocumentUUID,
) (*database.DocInfo, error) {
	filter := bson.M{"document_uuid": documentUUID}
	if id, ok := c.uuidCache.Get(documentUUID); ok {
		filter["_id"] = id
	}

	result := c.collection(ColDocuments).FindOne(ctx, filter)
	if errors.Is(result.Err(), mongo.ErrNoDocuments) {
		c.uuidCache.Remove(documentUUID)
		return nil, fmt.Errorf("find document of uuid %s: %w", documentUUID, database.ErrDocumentNotFound)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("find document of uuid %s: %w", documentUUID, result.Err())
	}

	info, err := decodeDocInfo(result)
	if err != nil {
		return nil, fmt.Errorf("decode document of uuid %s: %w", documentUUID, err)
	}
	c.uuidCache.Add(info.DocumentUUID, info.ID)

	return info, nil
}

// FindExistingIDs returns the given ids that are present in the store.
func (c *Client) FindExistingIDs(
	ctx context.Context,
	ids []types.MeadowlarkID,
) ([]types.MeadowlarkID, error) {
	existing := make([]types.MeadowlarkID, 0, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	cursor, err := c.collection(ColDocuments).Find(
		ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("find existing ids: %w", err)
	}

	var found []struct {
		ID types.MeadowlarkID `bson:"_id"`
	}
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("fetch existing ids: %w", err)
	}

	present := make(map[types.MeadowlarkID]struct{}, len(found))
	for _, f := range found {
		present[f.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := present[id]; ok {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

// lockRequiredRefs checks that the required references exist. Inside a
// transaction it also writes them, which turns a concurrent delete of any of
// them into a write conflict.
func (c *Client) lockRequiredRefs(ctx context.Context, refs []types.MeadowlarkID) error {
	if len(refs) == 0 {
		return nil
	}

	var matched int64
	if c.config.UseTransactions {
		result, err := c.collection(ColDocuments).UpdateMany(
			ctx,
			bson.M{"_id": bson.M{"$in": refs}},
			bson.M{"$set": bson.M{lockKey: bson.NewObjectID()}},
		)
		if err != nil {
			return fmt.Errorf("lock references: %w", err)
		}
		matched = result.MatchedCount
	} else {
		existing, err := c.FindExistingIDs(ctx, refs)
		if err != nil {
			return err
		}
		matched = int64(len(existing))
	}

	if matched < int64(len(refs)) {
		return fmt.Errorf("%d of %d: %w", int64(len(refs))-matched, len(refs), database.ErrReferencesNotFound)
	}
	return nil
}

// InsertDocInfo inserts a new document.
func (c *Client) InsertDocInfo(
	ctx context.Context,
	info *database.DocInfo,
	opts database.WriteOptions,
) error {
	return c.withTransaction(ctx, len(opts.RequiredRefs) > 0, func(ctx context.Context) error {
		if err := c.lockRequiredRefs(ctx, opts.RequiredRefs); err != nil {
			return fmt.Errorf("insert document of %s: %w", info.ID, err)
		}

		if _, err := c.collection(ColDocuments).InsertOne(ctx, info); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("insert document of %s: %w", info.ID, database.ErrDocumentAlreadyExists)
			}
			return fmt.Errorf("insert document of %s: %w", info.ID, err)
		}

		c.uuidCache.Add(info.DocumentUUID, info.ID)
		return nil
	})
}

// ReplaceDocInfo replaces the document of the id and uuid of the given info.
func (c *Client) ReplaceDocInfo(
	ctx context.Context,
	info *database.DocInfo,
	opts database.WriteOptions,
) error {
	return c.withTransaction(ctx, len(opts.RequiredRefs) > 0, func(ctx context.Context) error {
		if err := c.lockRequiredRefs(ctx, opts.RequiredRefs); err != nil {
			return fmt.Errorf("replace document of %s: %w", info.ID, err)
		}

		result, err := c.collection(ColDocuments).ReplaceOne(
			ctx,
			bson.M{"_id": info.ID, "document_uuid": info.DocumentUUID},
			info,
		)
		if err != nil {
			return fmt.Errorf("replace document of %s: %w", info.ID, err)
		}
		if result.MatchedCount == 0 {
			return fmt.Errorf("replace document of %s: %w", info.ID, database.ErrDocumentNotFound)
		}
		return nil
	})
}

// DeleteDocInfo deletes the document of the given id.
func (c *Client) DeleteDocInfo(
	ctx context.Context,
	id types.MeadowlarkID,
	opts database.DeleteOptions,
) error {
	return c.withTransaction(ctx, opts.ForbidReferenced, func(ctx context.Context) error {
		if opts.ForbidReferenced {
			count, err := c.collection(ColDocuments).CountDocuments(
				ctx,
				bson.M{"outbound_refs": id, "_id": bson.M{"$ne": id}},
				options.Count().SetLimit(1),
			)
			if err != nil {
				return fmt.Errorf("count documents referring %s: %w", id, err)
			}
			if count > 0 {
				return fmt.Errorf("delete document of %s: %w", id, database.ErrDocumentReferenced)
			}
		}

		result, err := c.collection(ColDocuments).DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("delete document of %s: %w", id, err)
		}
		if result.DeletedCount == 0 {
			return fmt.Errorf("delete document of %s: %w", id, database.ErrDocumentNotFound)
		}
		return nil
	})
}

// FindReferringDocInfos returns the documents referencing the given id.
func (c *Client) FindReferringDocInfos(
	ctx context.Context,
	id types.MeadowlarkID,
	limit int,
) ([]*database.DocInfo, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := c.collection(ColDocuments).Find(ctx, bson.M{"outbound_refs": id}, opts)
	if err != nil {
		return nil, fmt.Errorf("find documents referring %s: %w", id, err)
	}

	var infos []*database.DocInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("fetch documents referring %s: %w", id, err)
	}
	for _, info := range infos {
		normalize(info)
	}

	return infos, nil
}

// FindDocInfosByResource returns a page of the documents of the resource.
func (c *Client) FindDocInfosByResource(
	ctx context.Context,
	resourceInfo types.ResourceInfo,
	lastID types.MeadowlarkID,
	limit int,
) ([]*database.DocInfo, error) {
	filter := bson.M{
		"resource_info.project_name":  resourceInfo.ProjectName,
		"resource_info.resource_name": resourceInfo.ResourceName,
	}
	if lastID != "" {
		filter["_id"] = bson.M{"$gt": lastID}
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := c.collection(ColDocuments).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find documents of %s: %w", resourceInfo, err)
	}

	var infos []*database.DocInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("fetch documents of %s: %w", resourceInfo, err)
	}
	for _, info := range infos {
		normalize(info)
	}

	return infos, nil
}
