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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestCommandCollection(t *testing.T) {
	find, err := bson.Marshal(bson.D{{Key: "find", Value: ColDocuments}, {Key: "filter", Value: bson.D{}}})
	require.NoError(t, err)
	assert.Equal(t, ColDocuments, commandCollection("find", find))

	ping, err := bson.Marshal(bson.D{{Key: "ping", Value: 1}})
	require.NoError(t, err)
	assert.Equal(t, "admin", commandCollection("ping", ping))

	assert.Equal(t, "unknown", commandCollection("insert", ping))
	assert.Equal(t, "unknown", commandCollection("insert", nil))
}

func TestIsExpectedFailure(t *testing.T) {
	assert.False(t, isExpectedFailure(nil))
	assert.True(t, isExpectedFailure(errors.New(
		"E11000 duplicate key error collection: meadowlark."+ColDocuments+" index: _id_",
	)))
	assert.True(t, isExpectedFailure(errors.New("(WriteConflict) Write conflict during plan execution")))
	assert.False(t, isExpectedFailure(errors.New("E11000 duplicate key error collection: meadowlark.other")))
	assert.False(t, isExpectedFailure(errors.New("connection refused")))
}
