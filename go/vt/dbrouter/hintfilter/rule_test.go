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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaodevops/dbrouter/go/vt/config"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/statement"
)

func TestCompileRuleCaseInsensitiveByDefault(t *testing.T) {
	r, err := compileRule(config.RulePair{Name: "match01", Pattern: "^SELECT .*FROM audit", Targets: []string{"->master"}}, config.RuleOptions{})
	require.NoError(t, err)
	assert.True(t, r.pattern.MatchString("select x from audit where id=1"))
	assert.Equal(t, statement.HintRouteToMaster, r.hints[0].Kind)
}

func TestCompileRuleCaseSensitive(t *testing.T) {
	r, err := compileRule(config.RulePair{Name: "match01", Pattern: "^SELECT", Targets: []string{"->master"}}, config.RuleOptions{CaseSensitive: true})
	require.NoError(t, err)
	assert.False(t, r.pattern.MatchString("select 1"))
	assert.True(t, r.pattern.MatchString("SELECT 1"))
}

func TestCompileRuleExtendedWhitespace(t *testing.T) {
	pattern := `^SELECT \s+ # leading select
	            .* FROM \s+ audit`
	r, err := compileRule(config.RulePair{Name: "match01", Pattern: pattern, Targets: []string{"->master"}}, config.RuleOptions{ExtendedWhitespace: true})
	require.NoError(t, err)
	assert.True(t, r.pattern.MatchString("SELECT x FROM audit"))
}

func TestCompileRuleBadPatternIsConfigError(t *testing.T) {
	_, err := compileRule(config.RulePair{Name: "match01", Pattern: "(unterminated", Targets: []string{"->master"}}, config.RuleOptions{})
	require.Error(t, err)
}

func TestCompileRuleMultipleTargets(t *testing.T) {
	r, err := compileRule(config.RulePair{Name: "match01", Pattern: "SET", Targets: []string{"server1", "server2"}}, config.RuleOptions{})
	require.NoError(t, err)
	require.Len(t, r.hints, 2)
	assert.Equal(t, statement.HintNamedServer, r.hints[0].Kind)
	assert.Equal(t, "server1", r.hints[0].Target)
}
