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

// Command fleetvisor launches a fleet of worker nodes and gives the
// operator an interactive console to kill, respawn and inspect them.
// Worker output goes to the session log, never to the terminal.
//
// The flags are
//
//	-c <file>       YAML configuration, overriding the built-in fleet
//	-d <dir>        directory workers run in and the log lives in
//	-l <file>       session log file (default fleet_log.txt)
//	-m <ports>      comma separated fleet members
//	-a <address>    also serve the fleet over HTTP on <address>
//
// Everything after "--" is taken as the worker command, e.g.
//
//	fleetvisor -m 3000,3001,3002 -- node test.js
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gdamore/fleetvisor"
	"github.com/gdamore/fleetvisor/config"
	"github.com/gdamore/fleetvisor/console"
	"github.com/gdamore/fleetvisor/rpc"
)

var (
	cfgFile string
	dir     string
	logFile string
	members string
	addr    string
)

var rootCmd = &cobra.Command{
	Use:   "fleetvisor [flags] [-- worker command...]",
	Short: "Operator console for a local fleet of worker nodes",
	Long: `fleetvisor starts one worker per fleet member, records everything the
workers print in a session log, and reads operator commands from standard
input.  Type "help" at the console for the command list.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&cfgFile, "config", "c", "", "YAML configuration file")
	f.StringVarP(&dir, "dir", "d", "", "worker and log directory (default: beside the executable)")
	f.StringVarP(&logFile, "log", "l", "", "session log file (default "+config.DefaultLogFile+")")
	f.StringVarP(&members, "members", "m", "", "comma separated fleet members (ports)")
	f.StringVarP(&addr, "listen", "a", "", "serve the fleet over HTTP on this address")
}

func loadConfig(args []string) (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		c, e := config.Load(cfgFile)
		if e != nil {
			return nil, e
		}
		cfg = c
	}
	if dir != "" {
		cfg.Dir = dir
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if addr != "" {
		cfg.Listen = addr
	}
	if members != "" {
		cfg.Members = nil
		for _, p := range strings.Split(members, ",") {
			m, e := fleetvisor.ParseMember(p)
			if e != nil {
				return nil, e
			}
			cfg.Members = append(cfg.Members, int(m))
		}
	}
	if len(args) != 0 {
		cfg.Command = args
	}
	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, args []string) error {
	cfg, e := loadConfig(args)
	if e != nil {
		return e
	}
	fleet, e := cfg.Fleet()
	if e != nil {
		return e
	}

	sink, e := fleetvisor.OpenSink(cfg.LogPath())
	if e != nil {
		return fmt.Errorf("cannot open session log: %w", e)
	}

	reg := prometheus.NewRegistry()
	sup := fleetvisor.NewSupervisor(fleet, cfg.Launcher(), sink,
		fleetvisor.WithExtractor(fleetvisor.NewExtractor(cfg.Marker)),
		fleetvisor.WithMetrics(fleetvisor.NewMetrics(reg)),
		fleetvisor.WithLogger(log.New(os.Stderr, "fleetvisor: ", log.LstdFlags)))

	if cfg.Listen != "" {
		srv, e := rpc.Listen(context.Background(), cfg.Listen,
			rpc.NewHandler(sup, reg, os.Interrupt))
		if e != nil {
			return e
		}
		defer srv.Close()
		fmt.Printf("Serving fleet on http://%s\n", srv.Addr())
	}

	// Nodes that fail to launch are reported, and stay stopped.
	if _, e := sup.SpawnAll(); e != nil {
		fmt.Println(e)
		if merr, ok := e.(*fleetvisor.MultiError); ok && len(merr.Errors) > 1 {
			for _, e := range merr.Errors {
				fmt.Println("  ", e)
			}
		}
	}
	fmt.Println(`Fleet control running. Type "help" for commands.`)
	fmt.Printf("Logs are in %s\n", sink.Path())

	var opts []console.Option
	if term.IsTerminal(int(os.Stdin.Fd())) {
		opts = append(opts, console.WithPrompt("> "))
	}
	// Workers are signalled but not waited for; whatever they print
	// after this point may not reach the log.
	return console.New(sup, os.Stdin, os.Stdout, opts...).Run()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}
