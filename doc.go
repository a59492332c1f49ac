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

// Package fleetvisor supervises a small, fixed fleet of local worker
// processes, such as the nodes of a Raft cluster under test.
//
// Every worker is identified by a Member (its port).  The Supervisor
// launches a worker with its own identity and the identities of its
// fellows, captures its standard output and standard error into a single
// session log (the Sink), and watches standard output for a status
// signal (see Extractor) so that an operator can tell, for instance,
// which node currently believes itself to be the leader.
//
// The Supervisor never restarts workers on its own.  It exists to let a
// human kill and respawn nodes deliberately, and to keep an ordered
// record of what each node said while that happened.  The console
// package provides the interactive front end, and the rpc package an
// optional read-mostly HTTP view of the same state.
//
package fleetvisor
