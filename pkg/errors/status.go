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

// Package errors provides errors that carry a status and an optional
// machine readable code, so that callers can branch on the kind of failure
// without matching messages.
package errors

import "fmt"

// StatusCode is the kind of failure an error represents.
type StatusCode int

const (
	// ErrCodeInvalidArgument indicates that the caller sent a malformed request.
	ErrCodeInvalidArgument StatusCode = 3

	// ErrCodeNotFound indicates that the requested entity does not exist.
	ErrCodeNotFound StatusCode = 5

	// ErrCodeAlreadyExists indicates that the entity to create already exists.
	ErrCodeAlreadyExists StatusCode = 6

	// ErrCodeFailedPrecondition indicates that the store is not in the state
	// the operation requires, e.g. a referenced document is missing.
	ErrCodeFailedPrecondition StatusCode = 9

	// ErrCodeAborted indicates that the operation lost a race with a
	// concurrent writer and may be retried.
	ErrCodeAborted StatusCode = 10

	// ErrCodeInternal indicates a broken invariant of the underlying system.
	ErrCodeInternal StatusCode = 13

	// ErrCodeUnavailable indicates that a dependency is temporarily unreachable.
	ErrCodeUnavailable StatusCode = 14
)

// String returns the string representation of the status.
func (c StatusCode) String() string {
	switch c {
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeAlreadyExists:
		return "already_exists"
	case ErrCodeFailedPrecondition:
		return "failed_precondition"
	case ErrCodeAborted:
		return "aborted"
	case ErrCodeInternal:
		return "internal"
	case ErrCodeUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("code_%d", int(c))
	}
}

// IsRetryable returns true if an operation that failed with this status may
// succeed when tried again without changing the request.
func (c StatusCode) IsRetryable() bool {
	return c == ErrCodeAborted || c == ErrCodeUnavailable
}
