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

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidation(t *testing.T) {
	t.Run("ValidateValue test", func(t *testing.T) {
		assert.NoError(t, ValidateValue("ed-fi", "required,project_name"))
		assert.NoError(t, ValidateValue("tpdm", "required,project_name"))

		err := ValidateValue("ed fi", "required,project_name")
		assert.Equal(t, "project_name", err.(Violation).Tag)

		assert.NoError(t, ValidateValue("School", "required,resource_name"))
		assert.NoError(t, ValidateValue("AcademicWeekDescriptor", "required,resource_name"))

		err = ValidateValue("1School", "required,resource_name")
		assert.Equal(t, "resource_name", err.(Violation).Tag)

		err = ValidateValue("School/Ref", "required,resource_name")
		assert.Equal(t, "resource_name", err.(Violation).Tag)

		err = ValidateValue("", "required,resource_name")
		assert.Equal(t, "required", err.(Violation).Tag)
	})

	t.Run("duration test", func(t *testing.T) {
		assert.NoError(t, ValidateValue("1h30m20s", "duration"))
		assert.NoError(t, ValidateValue("250ms", "duration"))

		err := ValidateValue("one hour", "duration")
		assert.Equal(t, "duration", err.(Violation).Tag)

		err = ValidateValue("-5s", "duration")
		assert.Equal(t, "duration", err.(Violation).Tag)

		err = ValidateValue("0s", "duration")
		assert.Equal(t, "duration", err.(Violation).Tag)
	})

	t.Run("ValidateStruct test", func(t *testing.T) {
		type Resource struct {
			Project string `validate:"required,project_name"`
			Name    string `validate:"required,resource_name"`
			Timeout string `validate:"duration"`
		}

		assert.NoError(t, ValidateStruct(Resource{Project: "ed-fi", Name: "School", Timeout: "5s"}))

		err := ValidateStruct(Resource{Project: "ed fi", Name: "", Timeout: "never"})
		structError := err.(*StructError)
		assert.Len(t, structError.Violations, 3)
		assert.Equal(t, "Project", structError.Violations[0].Field)
		assert.Contains(t, structError.Error(), "Name is a required field")
	})

	t.Run("custom rule test", func(t *testing.T) {
		assert.NoError(t, RegisterValidation("custom", func(v FieldLevel) bool {
			return v.Field().String() == "custom"
		}))
		assert.NoError(t, RegisterTranslation("custom", "{0} must be custom"))

		assert.Error(t, ValidateValue("custom-invalid-value", "required,custom"))
		assert.NoError(t, ValidateValue("custom", "required,custom"))
	})
}
