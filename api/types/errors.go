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

import "github.com/meadowlark-team/meadowlark/pkg/errors"

// Below are the errors may occur before a request reaches the store.
var (
	// ErrInvalidRequest is returned when a request is malformed. It is a
	// caller error, never a store failure.
	ErrInvalidRequest = errors.InvalidArgument("invalid request").WithCode("ErrInvalidRequest")
)
