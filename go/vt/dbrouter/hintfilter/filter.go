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

package hintfilter

import (
	"net"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/gaodevops/dbrouter/go/vt/config"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/statement"
	"github.com/gaodevops/dbrouter/go/vt/log"
	"github.com/gaodevops/dbrouter/go/vt/vterrors"
)

// Filter is one configured hint-filter instance: an ordered rule set
// plus the user/source activation predicates that gate it.
type Filter struct {
	rules []*rule

	user       string
	sourceNet  *net.IPNet // nil if no source restriction
	sourceAddr string     // original configured value, for logging

	// errOnce dedupes pattern-match errors to one log line per rule,
	// with a TTL so a rule that starts failing again after a long quiet
	// period is re-logged.
	errOnce *gocache.Cache
}

// New compiles raw into a Filter. Compilation failure is a
// vterrors.ConfigError and rejects the whole service configuration.
func New(raw *config.HintFilterRaw) (*Filter, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	f := &Filter{
		user:    raw.User,
		errOnce: gocache.New(1*time.Hour, 10*time.Minute),
	}
	for _, pair := range raw.RulePairs() {
		r, err := compileRule(pair, raw.Options)
		if err != nil {
			return nil, err
		}
		f.rules = append(f.rules, r)
	}
	if raw.Source != "" {
		ipnet, err := parseWildcardSource(raw.Source)
		if err != nil {
			return nil, vterrors.New(vterrors.ConfigError, "hint filter: bad source %q: %v", raw.Source, err)
		}
		f.sourceNet = ipnet
		f.sourceAddr = raw.Source
	}
	return f, nil
}

// IsActive reports whether the filter applies to a session with the
// given username and client IPv4 address.
func (f *Filter) IsActive(user, clientIP string) bool {
	if f.user != "" && f.user != user {
		return false
	}
	if f.sourceNet != nil {
		ip := net.ParseIP(clientIP)
		if ip == nil || !f.sourceNet.Contains(ip) {
			return false
		}
	}
	return true
}

// Apply walks the rule set for the first pattern that matches sql and
// prepends its hints to the statement's hint list, preserving
// insertion order. If no rule matches, hints is returned unchanged.
// A runtime pattern-match error leaves hints unchanged and is logged
// once per rule.
func (f *Filter) Apply(sql string, hints statement.Hints) statement.Hints {
	for _, r := range f.rules {
		matched, err := matchSafely(r, sql)
		if err != nil {
			f.reportOnce(r.name, err)
			return hints
		}
		if matched {
			return hints.Prepend(r.hints...)
		}
	}
	return hints
}

// matchSafely recovers a panic out of the regex engine (e.g. from
// pathological input) as a runtime match error rather than crashing
// the session; the caller lets the statement pass through unmodified.
func matchSafely(r *rule, sql string) (matched bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = vterrors.New(vterrors.PatternMatchError, "rule %s: %v", r.name, rec)
		}
	}()
	return r.pattern.MatchString(sql), nil
}

func (f *Filter) reportOnce(ruleName string, err error) {
	if _, found := f.errOnce.Get(ruleName); found {
		return
	}
	f.errOnce.SetDefault(ruleName, struct{}{})
	log.Errorf("hint filter rule %s: pattern match error: %v", ruleName, err)
}

// parseWildcardSource turns a dotted-quad with up to three trailing
// '%' octet-wildcards into the matching /24, /16, or /8 net.IPNet.
func parseWildcardSource(source string) (*net.IPNet, error) {
	octets := strings.Split(source, ".")
	if len(octets) != 4 {
		return nil, vterrors.New(vterrors.ConfigError, "source must be a dotted-quad, got %q", source)
	}
	wildcards := 0
	trailingWildcard := true
	ip := make(net.IP, 4)
	for i := 3; i >= 0; i-- {
		if octets[i] == "%" {
			if !trailingWildcard {
				return nil, vterrors.New(vterrors.ConfigError, "source wildcards must be trailing octets, got %q", source)
			}
			wildcards++
			ip[i] = 0
			continue
		}
		trailingWildcard = false
		v, err := strconv.Atoi(octets[i])
		if err != nil || v < 0 || v > 255 {
			return nil, vterrors.New(vterrors.ConfigError, "invalid octet %q in source %q", octets[i], source)
		}
		ip[i] = byte(v)
	}
	if wildcards == 0 {
		// Exact match: a /32.
		return &net.IPNet{IP: ip, Mask: net.CIDRMask(32, 32)}, nil
	}
	if wildcards > 3 {
		return nil, vterrors.New(vterrors.ConfigError, "source %q has too many wildcard octets", source)
	}
	prefixLen := 32 - 8*wildcards
	return &net.IPNet{IP: ip.Mask(net.CIDRMask(prefixLen, 32)), Mask: net.CIDRMask(prefixLen, 32)}, nil
}
