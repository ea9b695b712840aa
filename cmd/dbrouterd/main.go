/*
Copyright 2026 The DB Router Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command dbrouterd hosts the query-routing core as a standalone
// daemon: it loads a service configuration, compiles the optional hint
// filter, and exposes the Prometheus registry the routing core feeds.
// The wire-protocol listener and the monitor subsystem that maintains
// backend topology are expected to be wired in by an embedder; this
// binary's own main is a minimal harness for exercising that wiring
// and for the config/flag surface itself.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gaodevops/dbrouter/go/vt/config"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/hintfilter"
	"github.com/gaodevops/dbrouter/go/vt/log"
)

var (
	v = viper.New()

	configFile  string
	httpAddr    string
	hintMatch   []string
	hintTargets []string
	hintUser    string
	hintSource  string

	root = &cobra.Command{
		Use:   "dbrouterd",
		Short: "dbrouterd routes MySQL/MariaDB-protocol statements between a master and its slaves.",
		Long: "dbrouterd hosts the read/write-split routing core: a hint filter, a route " +
			"decider, and per-client session routers. It does not itself speak the wire " +
			"protocol; that and the backend topology monitor are supplied by an embedder.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				v.SetConfigFile(configFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config file %s: %w", configFile, err)
				}
			}
			return nil
		},
		RunE: runServe,
	}
)

func init() {
	fs := root.PersistentFlags()
	log.RegisterFlags(fs)
	config.RegisterFlags(fs, v)

	fs.StringVar(&configFile, "config-file", "", "optional YAML/JSON/TOML file of service settings")
	fs.StringVar(&httpAddr, "http-addr", ":8080", "address to serve /metrics on")
	fs.StringSliceVar(&hintMatch, "hint-filter-match", nil, "indexed hint filter match patterns (matchNN)")
	fs.StringSliceVar(&hintTargets, "hint-filter-target", nil, "indexed hint filter targets (targetNN), parallel to --hint-filter-match")
	fs.StringVar(&hintUser, "hint-filter-user", "", "restrict the hint filter to sessions authenticated as this user")
	fs.StringVar(&hintSource, "hint-filter-source", "", "restrict the hint filter to client IPs matching this dotted-quad, '%' wildcards allowed in trailing octets")

	v.SetEnvPrefix("dbrouterd")
	v.AutomaticEnv()
}

func runServe(cmd *cobra.Command, args []string) error {
	defer log.Flush()

	svc, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("loading service config: %w", err)
	}
	log.Infof("starting dbrouterd: %s", svc)

	if len(hintMatch) != len(hintTargets) {
		return fmt.Errorf("--hint-filter-match and --hint-filter-target must be given the same number of times")
	}
	if len(hintMatch) > 0 {
		hint, err := hintfilter.New(&config.HintFilterRaw{
			Matches: hintMatch,
			Targets: hintTargets,
			User:    hintUser,
			Source:  hintSource,
		})
		if err != nil {
			return fmt.Errorf("compiling hint filter: %w", err)
		}
		log.Infof("compiled hint filter with %d rule(s)", len(hintMatch))
		_ = hint // handed to each session.New call by the embedder that owns the client connections
	}

	http.Handle("/metrics", promhttp.Handler())
	log.Infof("serving metrics on %s", httpAddr)
	return http.ListenAndServe(httpAddr, nil)
}

func main() {
	pflag.CommandLine = root.PersistentFlags()
	if err := root.Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
