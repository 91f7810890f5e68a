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

// Package types provides the types used by the Meadowlark repository layer.
// Adapters build requests from these types and translate the results back to
// their own transport.
package types

import (
	"fmt"

	"github.com/meadowlark-team/meadowlark/internal/validation"
)

// DefaultProjectName is the project of the Ed-Fi data standard resources.
const DefaultProjectName = "ed-fi"

// ResourceInfo identifies the type of a resource. It is supplied by the
// caller per request and is never modified.
type ResourceInfo struct {
	// ProjectName is the name of the API project, e.g. "ed-fi".
	ProjectName string `json:"projectName" bson:"project_name" validate:"required,project_name"`

	// ResourceName is the name of the resource, e.g. "School".
	ResourceName string `json:"resourceName" bson:"resource_name" validate:"required,resource_name"`

	// ResourceVersion is the version of the data standard the resource
	// belongs to. It does not take part in the identity of a document.
	ResourceVersion string `json:"resourceVersion" bson:"resource_version"`

	// IsDescriptor is true when the resource is a descriptor.
	IsDescriptor bool `json:"isDescriptor" bson:"is_descriptor"`
}

// NewResourceInfo returns a ResourceInfo of the default project.
func NewResourceInfo(resourceName string) ResourceInfo {
	return ResourceInfo{
		ProjectName:  DefaultProjectName,
		ResourceName: resourceName,
	}
}

// Validate returns an error if the resource info misses a required field.
func (r ResourceInfo) Validate() error {
	if err := validation.ValidateStruct(r); err != nil {
		return fmt.Errorf("resource info: %w", err)
	}
	return nil
}

// String returns the string representation of the resource, "project/name".
func (r ResourceInfo) String() string {
	return r.ProjectName + "/" + r.ResourceName
}
