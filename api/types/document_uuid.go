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

import (
	"github.com/google/uuid"
	"github.com/rs/xid"
)

// DocumentUUID is the external identifier of a document. It is assigned by
// the repository when the document is first inserted and never changes.
type DocumentUUID string

// NewDocumentUUID returns a new random DocumentUUID.
func NewDocumentUUID() DocumentUUID {
	return DocumentUUID(uuid.NewString())
}

// String returns the string representation of this uuid.
func (u DocumentUUID) String() string {
	return string(u)
}

// IsValid returns whether this uuid is a well-formed RFC 4122 UUID. Lookups
// do not require it: an unknown or malformed uuid is simply not found.
func (u DocumentUUID) IsValid() bool {
	_, err := uuid.Parse(string(u))
	return err == nil
}

// TraceID correlates the log lines of a single request.
type TraceID string

// NewTraceID returns a new, roughly time-ordered TraceID.
func NewTraceID() TraceID {
	return TraceID(xid.New().String())
}
