// Copyright 2026 The Fleetvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fleetvisor

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMembers(t *testing.T) {
	Convey("Parsing members", t, func() {
		m, e := ParseMember("3001")
		So(e, ShouldBeNil)
		So(m, ShouldEqual, Member(3001))

		for _, bad := range []string{"", "abc", "30x1", "0", "-5", "70000"} {
			_, e := ParseMember(bad)
			So(errors.Is(e, ErrBadMember), ShouldBeTrue)
		}
	})

	Convey("Given a fleet of three", t, func() {
		fleet, e := NewFleet([]int{3000, 3001, 3002})
		So(e, ShouldBeNil)
		So(fleet, ShouldResemble, []Member{3000, 3001, 3002})

		Convey("Fellows excludes self and keeps order", func() {
			So(Fellows(fleet, 3001), ShouldResemble, []Member{3000, 3002})
			So(JoinMembers(Fellows(fleet, 3000)), ShouldEqual, "3001,3002")
		})
		Convey("A stranger's fellows are the whole fleet", func() {
			So(Fellows(fleet, 9999), ShouldResemble, fleet)
		})
	})

	Convey("Invalid fleets are rejected", t, func() {
		_, e := NewFleet(nil)
		So(errors.Is(e, ErrBadMember), ShouldBeTrue)
		_, e = NewFleet([]int{3000, 3000})
		So(errors.Is(e, ErrBadMember), ShouldBeTrue)
		_, e = NewFleet([]int{3000, 0})
		So(errors.Is(e, ErrBadMember), ShouldBeTrue)
	})
}
