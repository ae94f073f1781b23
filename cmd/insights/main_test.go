package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixture = filepath.Join("..", "..", "internal", "dataset", "testdata", "admissions.csv")

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--data", fixture}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestYears(t *testing.T) {
	out, err := run(t, "years")
	require.NoError(t, err)
	assert.Equal(t, "2021\n2022\n", out)
}

func TestPairs(t *testing.T) {
	out, err := run(t, "pairs", "--year", "2021", "-n", "1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"Subject", "1", "Subject", "2", "Wishes", "Received", "Accepted"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"Mathématiques", "Physique-Chimie", "1200", "900", "700"}, strings.Fields(lines[1]))

	_, err = run(t, "pairs", "--year", "1999")
	assert.ErrorContains(t, err, "unknown year")
}

func TestFormationsAndFunnel(t *testing.T) {
	out, err := run(t, "formations", "--metric", "accepted", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Licence - Droit")
	assert.NotContains(t, out, "BUT - Informatique")

	_, err = run(t, "formations", "--metric", "nope")
	assert.ErrorContains(t, err, "unknown metric")

	out, err = run(t, "funnel", "BUT - Informatique")
	require.NoError(t, err)
	assert.Contains(t, out, "Proposal never received")
	assert.Contains(t, out, "In BUT - Informatique, out of 830 wishes (100%), 560 (67.47%) proposals were received")

	_, err = run(t, "funnel")
	assert.Error(t, err)
}

func TestYearly(t *testing.T) {
	out, err := run(t, "yearly")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"2021", "1500", "1100", "850"}, strings.Fields(lines[1]))
}

func TestExport(t *testing.T) {
	out, err := run(t, "export", "--table", "rates")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Formation,Wishes,Received,Accepted,% Received,% Accepted,% Accepted of received\n"))
	assert.Contains(t, out, "Licence - Droit,800,500,250,62.50,31.25,50.00\n")

	out, err = run(t, "export", "--table", "formations")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.Split(out, "\n")[1], "BUT - Informatique,"), out)

	out, err = run(t, "export", "--table", "formations", "--metric", "accepted")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.Split(out, "\n")[1], "Licence - Droit,"), out)

	_, err = run(t, "export", "--table", "formations", "--metric", "nope")
	assert.ErrorContains(t, err, "unknown metric")

	_, err = run(t, "export")
	assert.ErrorContains(t, err, "--out is required")

	path := filepath.Join(t.TempDir(), "insights.xlsx")
	_, err = run(t, "export", "--out", path, "--formation", "Licence - Droit")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "funnel")
}

func TestMissingDataset(t *testing.T) {
	_, err := run(t, "--data", filepath.Join(t.TempDir(), "absent.csv"), "years")
	assert.ErrorContains(t, err, "open dataset")
}
