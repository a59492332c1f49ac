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
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestExtractStatus(t *testing.T) {
	Convey("Given the default extractor", t, func() {
		Convey("A marker with a token yields the token lowercased", func() {
			st, ok := ExtractStatus("Role Transition: LEADER\n")
			So(ok, ShouldBeTrue)
			So(st, ShouldEqual, "leader")
		})
		Convey("The marker is matched without regard to case", func() {
			st, ok := ExtractStatus("[raft] role transition:Follower (term 3)")
			So(ok, ShouldBeTrue)
			So(st, ShouldEqual, "follower")
		})
		Convey("Text without the marker yields nothing", func() {
			_, ok := ExtractStatus("heartbeat from 3001\n")
			So(ok, ShouldBeFalse)
		})
		Convey("A marker without a token yields nothing", func() {
			_, ok := ExtractStatus("Role Transition:   \n")
			So(ok, ShouldBeFalse)
		})
		Convey("The last of several markers wins", func() {
			st, ok := ExtractStatus("Role Transition: CANDIDATE\nvotes=2\nRole Transition: LEADER\n")
			So(ok, ShouldBeTrue)
			So(st, ShouldEqual, "leader")
		})
		Convey("A marker split across chunks is not found in either", func() {
			_, ok := ExtractStatus("Role Trans")
			So(ok, ShouldBeFalse)
			_, ok = ExtractStatus("ition: LEADER\n")
			So(ok, ShouldBeFalse)
		})
		Convey("Malformed input is harmless", func() {
			_, ok := ExtractStatus("\x00\xff\xfe(((")
			So(ok, ShouldBeFalse)
			_, ok = ExtractStatus("")
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a custom marker", t, func() {
		x := NewExtractor("state=")
		st, ok := x.Extract("worker state=Draining")
		So(ok, ShouldBeTrue)
		So(st, ShouldEqual, "draining")

		Convey("Regexp metacharacters in the marker are literal", func() {
			x := NewExtractor("(role)")
			_, ok := x.Extract("role LEADER")
			So(ok, ShouldBeFalse)
			st, ok := x.Extract("(role) LEADER")
			So(ok, ShouldBeTrue)
			So(st, ShouldEqual, "leader")
		})
		Convey("An empty marker selects the default", func() {
			st, ok := NewExtractor("").Extract("Role Transition: leader")
			So(ok, ShouldBeTrue)
			So(st, ShouldEqual, "leader")
		})
	})
}
