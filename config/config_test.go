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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdamore/fleetvisor"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	fleet, err := c.Fleet()
	require.NoError(t, err)
	assert.Equal(t, []fleetvisor.Member{3000, 3001, 3002}, fleet)
	assert.Equal(t, []string{"node", "test.js"}, c.Command)
	assert.Equal(t, fleetvisor.DefaultMarker, c.Marker)

	// Defaults must not alias the package-level slices.
	c.Members[0] = 1
	assert.Equal(t, 3000, DefaultMembers[0])
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
members: [4000, 4001]
logFile: /tmp/raft.log
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int{4000, 4001}, c.Members)
	assert.Equal(t, DefaultCommand, c.Command)
	assert.Equal(t, "/tmp/raft.log", c.LogPath())
}

func TestLoadRejectsBadFleets(t *testing.T) {
	for name, body := range map[string]string{
		"duplicate":  "members: [3000, 3000]",
		"range":      "members: [0]",
		"empty":      "members: []",
		"no command": "command: []",
		"bad flag":   `portFlag: "--port"`,
		"not yaml":   "members: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLauncherAndPaths(t *testing.T) {
	c := Default()
	c.Dir = "/srv/raft"
	c.Command = []string{"./raftd", "-v"}

	assert.Equal(t, filepath.Join("/srv/raft", DefaultLogFile), c.LogPath())

	cmd := c.Launcher().Command(3001, []fleetvisor.Member{3000, 3002})
	assert.Equal(t, "/srv/raft", cmd.Dir)
	assert.Equal(t, []string{"./raftd", "-v", "--port=3001", "--fellows=3000,3002"}, cmd.Args)
}
