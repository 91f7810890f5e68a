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

package mongo

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/event"
	"go.uber.org/zap"

	"github.com/meadowlark-team/meadowlark/server/logging"
)

// commandMonitor logs the commands sent to MongoDB. Every command is logged
// at debug level, slow ones at warn level with the collection they ran on.
type commandMonitor struct {
	logger             logging.Logger
	slowQueryThreshold time.Duration

	// collections holds the collection of the commands in flight.
	collections sync.Map
}

// newCommandMonitor returns the monitor of the commands of a client. A zero
// threshold disables slow query warnings.
func newCommandMonitor(slowQueryThreshold time.Duration) *event.CommandMonitor {
	m := &commandMonitor{
		logger:             logging.New("mongo"),
		slowQueryThreshold: slowQueryThreshold,
	}

	return &event.CommandMonitor{
		Started:   m.started,
		Succeeded: m.succeeded,
		Failed:    m.failed,
	}
}

func (m *commandMonitor) started(_ context.Context, evt *event.CommandStartedEvent) {
	m.collections.Store(evt.RequestID, commandCollection(evt.CommandName, evt.Command))
	if logging.Enabled(zap.DebugLevel) {
		m.logger.Debugf("start %d %s: %s", evt.RequestID, evt.CommandName, evt.Command)
	}
}

func (m *commandMonitor) succeeded(_ context.Context, evt *event.CommandSucceededEvent) {
	collection := m.finish(evt.RequestID)
	if m.slowQueryThreshold > 0 && evt.Duration > m.slowQueryThreshold {
		m.logger.Warnf("slow %d %s on %s: %s", evt.RequestID, evt.CommandName, collection, evt.Duration)
		return
	}
	m.logger.Debugf("done %d %s on %s: %s", evt.RequestID, evt.CommandName, collection, evt.Duration)
}

func (m *commandMonitor) failed(_ context.Context, evt *event.CommandFailedEvent) {
	collection := m.finish(evt.RequestID)
	if isExpectedFailure(evt.Failure) {
		m.logger.Debugf("lost race %d %s on %s: %v", evt.RequestID, evt.CommandName, collection, evt.Failure)
		return
	}
	m.logger.Warnf("fail %d %s on %s: %v (%s)", evt.RequestID, evt.CommandName, collection, evt.Failure, evt.Duration)
}

func (m *commandMonitor) finish(requestID int64) string {
	collection, ok := m.collections.LoadAndDelete(requestID)
	if !ok {
		return "unknown"
	}
	return collection.(string)
}

// commandCollection returns the collection a command runs on, the value of
// the command name key for the CRUD commands.
func commandCollection(commandName string, command bson.Raw) string {
	if command == nil {
		return "unknown"
	}
	value, err := command.LookupErr(commandName)
	if err != nil {
		return "unknown"
	}
	if name, ok := value.StringValueOK(); ok {
		return name
	}
	return "admin"
}

// isExpectedFailure reports failures that are part of normal operation.
// Concurrent inserts of the same document race on the primary key and all
// but one fail with a duplicate key error; conditional writes of a rewritten
// document fail with a write conflict.
func isExpectedFailure(failure error) bool {
	if failure == nil {
		return false
	}

	message := failure.Error()
	if strings.Contains(message, "E11000 duplicate key") && strings.Contains(message, ColDocuments) {
		return true
	}
	return strings.Contains(message, "WriteConflict")
}
