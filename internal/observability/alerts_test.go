package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertFile struct {
	Groups []struct {
		Name  string `yaml:"name"`
		Rules []struct {
			Alert       string            `yaml:"alert"`
			Expr        string            `yaml:"expr"`
			For         string            `yaml:"for"`
			Labels      map[string]string `yaml:"labels"`
			Annotations map[string]string `yaml:"annotations"`
		} `yaml:"rules"`
	} `yaml:"groups"`
}

func TestRBACAlertRulesReferenceExportedMetrics(t *testing.T) {
	root := filepath.Join("..", "..")
	raw, err := os.ReadFile(filepath.Join(root, "deploy", "prometheus", "alerts", "rbac.yml"))
	require.NoError(t, err)
	runbook, err := os.ReadFile(filepath.Join(root, "docs", "runbook-rbac.md"))
	require.NoError(t, err)

	var file alertFile
	require.NoError(t, yaml.Unmarshal(raw, &file))
	require.Len(t, file.Groups, 1)
	require.Equal(t, "rbac", file.Groups[0].Name)

	severities := map[string]string{
		"PermissionsUnavailable": "critical",
		"AuthzDenialSpike":       "warning",
		"SnapshotWarmFailures":   "warning",
		"SnapshotCacheErrors":    "warning",
	}
	exported := []string{
		"odyssey_http_requests_total",
		"odyssey_authz_decisions_total",
		"odyssey_jobs_total",
		"odyssey_rbac_snapshot_cache_total",
	}

	rules := file.Groups[0].Rules
	require.Len(t, rules, len(severities))
	for _, rule := range rules {
		want, ok := severities[rule.Alert]
		require.True(t, ok, "unexpected rule %s", rule.Alert)
		assert.Equal(t, want, rule.Labels["severity"], rule.Alert)
		assert.NotEmpty(t, rule.For, rule.Alert)
		assert.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
		assert.NotEmpty(t, rule.Annotations["description"], rule.Alert)

		usesExported := false
		for _, name := range exported {
			usesExported = usesExported || strings.Contains(rule.Expr, name)
		}
		assert.True(t, usesExported, "%s queries an unknown metric: %s", rule.Alert, rule.Expr)

		anchor, found := strings.CutPrefix(rule.Annotations["runbook"], "docs/runbook-rbac.md#")
		require.True(t, found, rule.Alert)
		heading := "## " + strings.ReplaceAll(anchor, "-", " ")
		assert.Contains(t, strings.ToLower(string(runbook)), heading, "runbook section for %s", rule.Alert)
	}
}
