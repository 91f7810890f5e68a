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

package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meadowlark-team/meadowlark/pkg/errors"
)

func TestStatusCode(t *testing.T) {
	t.Run("string test", func(t *testing.T) {
		assert.Equal(t, "invalid_argument", errors.ErrCodeInvalidArgument.String())
		assert.Equal(t, "not_found", errors.ErrCodeNotFound.String())
		assert.Equal(t, "aborted", errors.ErrCodeAborted.String())
		assert.Equal(t, "code_999", errors.StatusCode(999).String())
	})

	t.Run("retryable test", func(t *testing.T) {
		assert.True(t, errors.ErrCodeAborted.IsRetryable())
		assert.True(t, errors.ErrCodeUnavailable.IsRetryable())
		assert.False(t, errors.ErrCodeNotFound.IsRetryable())
		assert.False(t, errors.ErrCodeInternal.IsRetryable())
	})
}

func TestStatusError(t *testing.T) {
	errNotFound := errors.NotFound("document not found").WithCode("ErrDocumentNotFound")

	t.Run("status of wrapped error test", func(t *testing.T) {
		wrapped := fmt.Errorf("find abc: %w", errNotFound)
		assert.Equal(t, errors.ErrCodeNotFound, errors.StatusOf(wrapped))
		assert.Equal(t, "ErrDocumentNotFound", errors.CodeOf(wrapped))
		assert.True(t, errors.IsStatus(wrapped, errors.ErrCodeNotFound))
		assert.ErrorIs(t, wrapped, errNotFound)
		assert.Equal(t, "find abc: document not found", wrapped.Error())
	})

	t.Run("plain error test", func(t *testing.T) {
		plain := errors.New("plain")
		assert.Equal(t, errors.StatusCode(0), errors.StatusOf(plain))
		assert.Equal(t, "", errors.CodeOf(plain))
		assert.Equal(t, errors.StatusCode(0), errors.StatusOf(nil))
	})

	t.Run("with code keeps status test", func(t *testing.T) {
		base := errors.Aborted("write conflict")
		coded := base.WithCode("ErrConflictOnWrite")
		assert.Equal(t, errors.ErrCodeAborted, coded.Status())
		assert.Equal(t, "", base.Code())
		assert.True(t, errors.IsRetryable(fmt.Errorf("upsert: %w", coded)))
	})

	t.Run("joined error test", func(t *testing.T) {
		joined := errors.Join(errors.New("a"), errors.Unavailable("b"))
		assert.Equal(t, errors.ErrCodeUnavailable, errors.StatusOf(joined))
	})
}
