package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"mamaboss/internal/core"
	"mamaboss/internal/services"
)

func TestNewPrinter_RejectsUnknownFormat(t *testing.T) {
	_, err := newPrinter("csv", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"csv"`)
}

func TestPrinter_Table(t *testing.T) {
	users := []core.User{
		{ID: "u1", Name: "Ana", Email: "ana@example.com", CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "u2", Name: "Bia", Email: "bia@example.com", CreatedAt: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)},
	}

	p, err := newPrinter(formatTable, false)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, p.print(&buf, usersResult(users)))

	want := "ID  NAME  EMAIL            CREATED\n" +
		"u1  Ana   ana@example.com  2025-03-01\n" +
		"u2  Bia   bia@example.com  2025-03-02\n"
	assert.Equal(t, want, buf.String())

	quiet, err := newPrinter(formatTable, true)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, quiet.print(&buf, usersResult(users[:1])))
	assert.Equal(t, "u1  Ana  ana@example.com  2025-03-01\n", buf.String())
}

func TestPrinter_JSON(t *testing.T) {
	p, err := newPrinter(formatJSON, false)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, p.print(&buf, renewResult(services.RenewalReport{Checked: 4, Renewed: 1, Pending: 1, Expired: 1, Active: 2})))

	assert.JSONEq(t, `{"checked":4,"renewed":1,"pending":1,"expired":1,"failed":0,"active":2}`, buf.String())
}

func TestRenewResult_Table(t *testing.T) {
	p, err := newPrinter(formatTable, false)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, p.print(&buf, renewResult(services.RenewalReport{Checked: 2, Pending: 1, Active: 1})))

	want := "CHECKED  RENEWED  PENDING  EXPIRED  FAILED  ACTIVE\n" +
		"2        0        1        0        0       1\n"
	assert.Equal(t, want, buf.String())
}

func TestPrinter_YAML(t *testing.T) {
	p, err := newPrinter(formatYAML, false)
	require.NoError(t, err)

	plans := []core.Plan{{
		ID:       "pro",
		Name:     "Pro",
		Price:    core.Money{Cents: 2990},
		Currency: "BRL",
		Interval: core.IntervalMonthly,
		Features: []string{"tudo"},
		Premium:  true,
	}}
	var buf bytes.Buffer
	require.NoError(t, p.print(&buf, plansResult(plans)))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "- id: pro\n"), out)
	assert.Contains(t, out, "  price: 29.90\n")
	assert.Contains(t, out, "  description: \"\"\n")
	assert.Contains(t, out, "  interval: monthly\n")
	assert.NotContains(t, out, "{", "block style only")
	assert.NotContains(t, out, "isCurrent")

	var back []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	require.Len(t, back, 1)
	assert.Equal(t, []any{"tudo"}, back[0]["features"])
	assert.Equal(t, map[string]any{"maxTasks": 0, "maxGoals": 0}, back[0]["limits"])
	assert.Equal(t, true, back[0]["premium"])
}

func TestSubscriptionsResult(t *testing.T) {
	end := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	r := subscriptionsResult([]subscriptionRow{
		{UserID: "u1", Email: "ana@example.com", Plan: "free"},
		{UserID: "u2", Email: "bia@example.com", Plan: "pro", Subscription: &core.Subscription{
			Status: core.SubscriptionActive, EndDate: end, AutoRenew: true,
		}},
	})

	require.Len(t, r.rows, 2)
	assert.Equal(t, []string{"u1", "ana@example.com", "free", "-", "-", "-"}, r.rows[0])
	assert.Equal(t, []string{"u2", "bia@example.com", "pro", "active", "2025-04-15", "true"}, r.rows[1])
}

func TestPlansResult_Limits(t *testing.T) {
	r := plansResult([]core.Plan{{ID: "free", Limits: core.PlanLimits{MaxTasks: 10, MaxGoals: 5}}, {ID: "pro"}})
	assert.Equal(t, []string{"10", "5"}, r.rows[0][5:])
	assert.Equal(t, []string{"unlimited", "unlimited"}, r.rows[1][5:])
}

func TestParseMonth(t *testing.T) {
	y, m, err := parseMonth("2025-03")
	require.NoError(t, err)
	assert.Equal(t, 2025, y)
	assert.Equal(t, 3, m)

	for _, bad := range []string{"2025", "2025-13", "abcd-01", "2025-xx"} {
		_, _, err := parseMonth(bad)
		assert.Error(t, err, bad)
	}
}
