package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertFile struct {
	Groups []struct {
		Name  string      `yaml:"name"`
		Rules []alertRule `yaml:"rules"`
	} `yaml:"groups"`
}

var (
	metricRef     = regexp.MustCompile(`hrforms_[a-z_]+`)
	histogramPart = regexp.MustCompile(`_(bucket|sum|count)$`)
)

func loadAlertRules(t *testing.T) []alertRule {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "hrforms.yml"))
	require.NoError(t, err)
	var file alertFile
	require.NoError(t, yaml.Unmarshal(data, &file))
	for _, g := range file.Groups {
		if g.Name == "hrforms" {
			return g.Rules
		}
	}
	t.Fatal("hrforms alert group missing")
	return nil
}

func TestHRFormsAlertRules(t *testing.T) {
	severities := map[string]string{
		"HighErrorRate":          "critical",
		"HighLatency":            "warning",
		"NotificationsFailing":   "warning",
		"AuthorizationDenySpike": "warning",
		"MailJobFailures":        "warning",
	}
	runbook, err := os.ReadFile(filepath.Join("..", "..", "docs", "runbook.md"))
	require.NoError(t, err)

	rules := loadAlertRules(t)
	require.Len(t, rules, len(severities))
	for _, rule := range rules {
		want, ok := severities[rule.Alert]
		require.True(t, ok, "unexpected rule %q", rule.Alert)
		assert.Equal(t, want, rule.Labels["severity"], rule.Alert)
		assert.NotEmpty(t, rule.Expr, rule.Alert)
		assert.NotEmpty(t, rule.For, rule.Alert)
		assert.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
		assert.NotEmpty(t, rule.Annotations["description"], rule.Alert)

		anchor, found := strings.CutPrefix(rule.Annotations["runbook"], "docs/runbook.md#")
		require.True(t, found, "rule %s runbook must point into docs/runbook.md", rule.Alert)
		assert.Contains(t, string(runbook), "## "+anchor, rule.Alert)
	}
}

func TestAlertRulesReferenceExportedMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveDecision("/api/forms", false)
	metrics.ObserveNotifyFailure("form_assigned")
	_ = metrics.Jobs().Track("mail:send").End(errors.New("smtp down"))

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	exposed := scrape(t, metrics)
	for _, rule := range loadAlertRules(t) {
		for _, ref := range metricRef.FindAllString(rule.Expr, -1) {
			name := histogramPart.ReplaceAllString(ref, "")
			assert.Contains(t, exposed, "# TYPE "+name+" ", "rule %s references unknown metric %s", rule.Alert, ref)
		}
	}
}
