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

package logging

import (
	"context"
)

type loggerKey struct{}

// With returns a new context with the provided logger.
func With(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// From returns the logger stored in the provided context, the default logger
// if there is none.
func From(ctx context.Context) Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(Logger); ok {
			return logger
		}
	}
	return DefaultLogger()
}

// WithOperation returns a context carrying a logger for one repository
// operation on the given resource. The trace id of the request is attached
// to every line so that the lines of a request can be joined across
// components.
func WithOperation(ctx context.Context, operation, resource, traceID string) (context.Context, Logger) {
	logger := From(ctx).Named(operation)
	if resource != "" {
		logger = logger.With("resource", resource)
	}
	if traceID != "" {
		logger = logger.With("trace_id", traceID)
	}
	return With(ctx, logger), logger
}
