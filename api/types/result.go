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

package types

// GetResponse is the outcome of a get.
type GetResponse string

// Below are the outcomes of a get.
const (
	GetSuccess          GetResponse = "GET_SUCCESS"
	GetFailureNotExists GetResponse = "GET_FAILURE_NOT_EXISTS"
	GetFailureError     GetResponse = "GET_FAILURE_ERROR"
)

// GetResult is the result of a get. Document is the stored body merged with
// "id" and "_lastModifiedDate"; it is set only on GET_SUCCESS.
type GetResult struct {
	Response GetResponse    `json:"response"`
	Document map[string]any `json:"document,omitempty"`
}

// UpsertOutcome is the outcome of an upsert.
type UpsertOutcome string

// Below are the outcomes of an upsert.
const (
	InsertSuccess          UpsertOutcome = "INSERT_SUCCESS"
	InsertFailureReference UpsertOutcome = "INSERT_FAILURE_REFERENCE"
	UpdateSuccess          UpsertOutcome = "UPDATE_SUCCESS"
	UpdateFailureReference UpsertOutcome = "UPDATE_FAILURE_REFERENCE"
	UpsertUnknownFailure   UpsertOutcome = "UNKNOWN_FAILURE"
)

// UpsertResult is the result of an upsert. NewDocumentUUID is the uuid of the
// inserted document, or of the existing one on UPDATE_SUCCESS.
type UpsertResult struct {
	Result          UpsertOutcome `json:"result"`
	NewDocumentUUID DocumentUUID  `json:"newDocumentUuid,omitempty"`
	FailureMessage  string        `json:"failureMessage,omitempty"`
}

// UpdateOutcome is the outcome of an update by uuid.
type UpdateOutcome string

// Below are the outcomes of an update by uuid.
const (
	UpdateByUUIDSuccess            UpdateOutcome = "UPDATE_SUCCESS"
	UpdateFailureNotExists         UpdateOutcome = "UPDATE_FAILURE_NOT_EXISTS"
	UpdateByUUIDFailureReference   UpdateOutcome = "UPDATE_FAILURE_REFERENCE"
	UpdateFailureImmutableIdentity UpdateOutcome = "UPDATE_FAILURE_IMMUTABLE_IDENTITY"
	UpdateUnknownFailure           UpdateOutcome = "UNKNOWN_FAILURE"
)

// UpdateResult is the result of an update by uuid.
type UpdateResult struct {
	Result         UpdateOutcome `json:"result"`
	FailureMessage string        `json:"failureMessage,omitempty"`
}

// DeleteOutcome is the outcome of a delete.
type DeleteOutcome string

// Below are the outcomes of a delete.
const (
	DeleteSuccess          DeleteOutcome = "DELETE_SUCCESS"
	DeleteFailureNotExists DeleteOutcome = "DELETE_FAILURE_NOT_EXISTS"
	DeleteFailureReference DeleteOutcome = "DELETE_FAILURE_REFERENCE"
	DeleteUnknownFailure   DeleteOutcome = "UNKNOWN_FAILURE"
)

// DeleteResult is the result of a delete. ReferringDocumentUUIDs lists the
// documents that blocked a DELETE_FAILURE_REFERENCE.
type DeleteResult struct {
	Result                 DeleteOutcome  `json:"result"`
	ReferringDocumentUUIDs []DocumentUUID `json:"referringDocumentUuids,omitempty"`
	FailureMessage         string         `json:"failureMessage,omitempty"`
}
