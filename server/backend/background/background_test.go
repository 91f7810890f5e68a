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

package background_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meadowlark-team/meadowlark/server/backend/background"
)

func TestBackground(t *testing.T) {
	t.Run("close cancels attached goroutines test", func(t *testing.T) {
		bg := background.New(nil)

		stopped := make(chan struct{})
		assert.True(t, bg.AttachGoroutine(func(ctx context.Context) {
			<-ctx.Done()
			close(stopped)
		}, "test"))

		bg.Close()
		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("goroutine was not stopped")
		}
	})

	t.Run("attach after close test", func(t *testing.T) {
		bg := background.New(nil)
		bg.Close()

		assert.False(t, bg.AttachGoroutine(func(ctx context.Context) {}, "test"))
	})
}
