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
	"regexp"
	"strings"
)

// DefaultMarker is the phrase Raft workers print when they change role,
// e.g. "Role Transition: LEADER".
const DefaultMarker = "Role Transition:"

// Extractor finds status signals in raw worker output.  It looks for a
// marker phrase, matched without regard to case, followed by a single
// identifier token.  Extractors hold no state and may be shared.
//
// Output is examined a chunk at a time, exactly as it was read from the
// pipe.  A marker that is split across two reads is not seen.
type Extractor struct {
	re *regexp.Regexp
}

// NewExtractor returns an Extractor for the given marker.  An empty
// marker selects DefaultMarker.
func NewExtractor(marker string) *Extractor {
	if strings.TrimSpace(marker) == "" {
		marker = DefaultMarker
	}
	return &Extractor{
		re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(marker) + `\s*(\w+)`),
	}
}

// Extract returns the status token carried by text, lowercased.  If the
// text carries several markers, the last one wins.  The second result is
// false when no marker is present, which is the common case.
func (x *Extractor) Extract(text string) (string, bool) {
	all := x.re.FindAllStringSubmatch(text, -1)
	if len(all) == 0 {
		return "", false
	}
	return strings.ToLower(all[len(all)-1][1]), true
}

var defaultExtractor = NewExtractor(DefaultMarker)

// ExtractStatus applies the default marker to text.
func ExtractStatus(text string) (string, bool) {
	return defaultExtractor.Extract(text)
}
