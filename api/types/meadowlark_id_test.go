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

package types_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meadowlark-team/meadowlark/api/types"
)

func TestMeadowlarkID(t *testing.T) {
	school := types.NewResourceInfo("School")

	t.Run("deterministic test", func(t *testing.T) {
		identity := types.DocumentIdentity{{Name: "schoolId", Value: "123"}}
		id1 := types.MeadowlarkIDFor(school, identity)
		id2 := types.MeadowlarkIDFor(school, types.DocumentIdentity{{Name: "schoolId", Value: "123"}})

		assert.Equal(t, id1, id2)
		assert.True(t, types.IsMeadowlarkID(id1.String()))
		assert.Len(t, id1.String(), 43)
	})

	t.Run("resource version excluded test", func(t *testing.T) {
		identity := types.DocumentIdentity{{Name: "schoolId", Value: "123"}}
		v1 := school
		v1.ResourceVersion = "3.3.1-b"
		v2 := school
		v2.ResourceVersion = "5.0.0"

		assert.Equal(t, types.MeadowlarkIDFor(v1, identity), types.MeadowlarkIDFor(v2, identity))
	})

	t.Run("resource type included test", func(t *testing.T) {
		identity := types.DocumentIdentity{{Name: "id", Value: "1"}}
		descriptor := types.ResourceInfo{ProjectName: "ed-fi", ResourceName: "School", IsDescriptor: true}
		other := types.ResourceInfo{ProjectName: "tpdm", ResourceName: "School"}

		base := types.MeadowlarkIDFor(school, identity)
		assert.NotEqual(t, base, types.MeadowlarkIDFor(types.NewResourceInfo("Student"), identity))
		assert.NotEqual(t, base, types.MeadowlarkIDFor(descriptor, identity))
		assert.NotEqual(t, base, types.MeadowlarkIDFor(other, identity))
	})

	t.Run("element order matters test", func(t *testing.T) {
		ab := types.DocumentIdentity{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}
		ba := types.DocumentIdentity{{Name: "b", Value: "2"}, {Name: "a", Value: "1"}}

		assert.NotEqual(t, types.MeadowlarkIDFor(school, ab), types.MeadowlarkIDFor(school, ba))
	})

	t.Run("delimiter ambiguity test", func(t *testing.T) {
		cases := [][2]types.DocumentIdentity{
			{
				{{Name: "a", Value: "b=c"}},
				{{Name: "a=b", Value: "c"}},
			},
			{
				{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}},
				{{Name: "a", Value: "1b2"}},
			},
			{
				{{Name: "ab", Value: ""}},
				{{Name: "a", Value: "b"}},
			},
		}
		for _, c := range cases {
			assert.NotEqual(t, types.MeadowlarkIDFor(school, c[0]), types.MeadowlarkIDFor(school, c[1]))
		}

		// resource name and identity must not bleed into each other.
		assert.NotEqual(t,
			types.MeadowlarkIDFor(types.NewResourceInfo("Schoolx"), types.DocumentIdentity{{Name: "id", Value: "1"}}),
			types.MeadowlarkIDFor(school, types.DocumentIdentity{{Name: "xid", Value: "1"}}),
		)
	})

	t.Run("no collisions test", func(t *testing.T) {
		const n = 10000
		seen := make(map[types.MeadowlarkID]int, n)
		for i := 0; i < n; i++ {
			id := types.MeadowlarkIDFor(school, types.DocumentIdentity{
				{Name: "schoolId", Value: fmt.Sprintf("%d", i)},
			})
			prev, ok := seen[id]
			require.False(t, ok, "collision between %d and %d", prev, i)
			seen[id] = i
		}
	})

	t.Run("is meadowlark id test", func(t *testing.T) {
		assert.False(t, types.IsMeadowlarkID(""))
		assert.False(t, types.IsMeadowlarkID("123"))
		assert.False(t, types.IsMeadowlarkID("!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!"))
	})
}

func TestDocumentIdentity(t *testing.T) {
	t.Run("validate test", func(t *testing.T) {
		assert.NoError(t, types.DocumentIdentity{{Name: "schoolId", Value: "123"}}.Validate())
		assert.ErrorIs(t, types.DocumentIdentity{}.Validate(), types.ErrInvalidDocumentIdentity)
		assert.ErrorIs(t, types.DocumentIdentity{{Value: "1"}}.Validate(), types.ErrInvalidDocumentIdentity)
		assert.ErrorIs(t, types.DocumentIdentity{
			{Name: "a", Value: "1"},
			{Name: "a", Value: "2"},
		}.Validate(), types.ErrInvalidDocumentIdentity)
	})

	t.Run("from map test", func(t *testing.T) {
		identity := types.NewDocumentIdentity(map[string]string{"b": "2", "a": "1"})
		assert.Equal(t, types.DocumentIdentity{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}, identity)
		assert.Equal(t, "{a=1,b=2}", identity.String())
	})

	t.Run("equal test", func(t *testing.T) {
		a := types.DocumentIdentity{{Name: "a", Value: "1"}}
		assert.True(t, a.Equal(types.DocumentIdentity{{Name: "a", Value: "1"}}))
		assert.False(t, a.Equal(types.DocumentIdentity{{Name: "a", Value: "2"}}))
		assert.False(t, a.Equal(nil))
	})
}

func TestReferences(t *testing.T) {
	school := types.DocumentReference{
		ResourceInfo:     types.NewResourceInfo("School"),
		DocumentIdentity: types.DocumentIdentity{{Name: "schoolId", Value: "123"}},
	}
	session := types.DocumentReference{
		ResourceInfo:     types.NewResourceInfo("Session"),
		DocumentIdentity: types.DocumentIdentity{{Name: "sessionName", Value: "Fall"}},
	}
	refs := types.References{school, session, school}

	ids := refs.MeadowlarkIDs()
	assert.Equal(t, []types.MeadowlarkID{school.MeadowlarkID(), session.MeadowlarkID()}, ids)

	found, ok := refs.Find(session.MeadowlarkID())
	assert.True(t, ok)
	assert.Equal(t, "Session{sessionName=Fall}", found.String())

	_, ok = refs.Find(types.MeadowlarkID("unknown"))
	assert.False(t, ok)
}
