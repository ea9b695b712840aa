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

// Package hintfilter attaches routing hints to a statement buffer
// before it reaches the route decider, based on operator-configured
// regex-to-target rules.
package hintfilter

import (
	"regexp"
	"strings"

	"github.com/gaodevops/dbrouter/go/vt/config"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/statement"
	"github.com/gaodevops/dbrouter/go/vt/vterrors"
)

// rule is one compiled pattern -> hint-targets mapping.
type rule struct {
	name    string
	pattern *regexp.Regexp
	targets []string
	hints   []statement.Hint
}

// compileRule turns one config.RulePair into a rule, applying its
// pattern-compilation options as regexp flags.
func compileRule(pair config.RulePair, opts config.RuleOptions) (*rule, error) {
	pattern := pair.Pattern
	if opts.ExtendedWhitespace {
		// Go's RE2 engine has no (?x) mode; emulate it by stripping
		// unescaped whitespace and '#'-prefixed comments before compiling.
		pattern = stripExtendedWhitespace(pattern)
	}
	if !opts.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, vterrors.New(vterrors.ConfigError, "hint filter rule %s: bad pattern %q: %v", pair.Name, pair.Pattern, err)
	}
	hints := make([]statement.Hint, 0, len(pair.Targets))
	for _, t := range pair.Targets {
		hints = append(hints, statement.HintForTarget(t))
	}
	return &rule{name: pair.Name, pattern: re, targets: pair.Targets, hints: hints}, nil
}

// stripExtendedWhitespace drops unescaped whitespace and '#' comments
// from pattern, as PCRE's /x option would before handing it to a
// regex engine that has no native extended mode.
func stripExtendedWhitespace(pattern string) string {
	var b strings.Builder
	inComment := false
	escaped := false
	for _, r := range pattern {
		switch {
		case inComment:
			if r == '\n' {
				inComment = false
			}
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			b.WriteRune(r)
			escaped = true
		case r == '#':
			inComment = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			// skip
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
