package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	herrors "github.com/pbaille/hop/internal/errors"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func hop(t *testing.T, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

// sandbox points hop at a fresh data directory and an empty config home
func sandbox(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOP_DATA_DIR", filepath.Join(root, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	return root
}

func mkdir(t *testing.T, p string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(p, 0o755))
	return p
}

func TestAddThenSearch(t *testing.T) {
	root := sandbox(t)
	work := mkdir(t, filepath.Join(root, "home", "u", "work"))
	personal := mkdir(t, filepath.Join(root, "home", "u", "personal"))

	for range 3 {
		r := hop(t, "add", work)
		require.Equal(t, herrors.ExitOK, r.code, r.stderr)
		assert.Empty(t, r.stdout)
	}
	require.Equal(t, herrors.ExitOK, hop(t, "add", personal).code)

	r := hop(t, "search", "wrk")
	assert.Equal(t, herrors.ExitOK, r.code)
	assert.Equal(t, work+"\n", r.stdout)

	r = hop(t, "search", "-e", work)
	assert.Equal(t, personal+"\n", r.stdout)

	r = hop(t, "search", "-a")
	assert.Equal(t, work+"\n"+personal+"\n", r.stdout)
}

func TestSearch_NoMatch(t *testing.T) {
	sandbox(t)

	for _, args := range [][]string{{"search", "nothing"}, {"search", "-a", "nothing"}} {
		r := hop(t, args...)
		assert.Equal(t, herrors.ExitNoMatch, r.code)
		assert.Empty(t, r.stdout)
		assert.Empty(t, r.stderr)
	}
}

func TestAdd_InvalidPathDoesNotFail(t *testing.T) {
	root := sandbox(t)
	r := hop(t, "add", filepath.Join(root, "missing"))
	assert.Equal(t, herrors.ExitOK, r.code)
	assert.Empty(t, r.stdout)
}

func TestInit(t *testing.T) {
	sandbox(t)

	r := hop(t, "init", "bash", "--cmd", "z")
	require.Equal(t, herrors.ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "z() {")
	assert.Contains(t, r.stdout, "search -e \"$PWD\"")

	r = hop(t, "init", "tcsh")
	assert.Equal(t, herrors.ExitUsage, r.code)
	assert.Contains(t, r.stderr, "not a supported shell")
}

func TestUsageErrors(t *testing.T) {
	sandbox(t)
	assert.Equal(t, herrors.ExitUsage, hop(t, "add").code)
	assert.Equal(t, herrors.ExitUsage, hop(t, "search", "--bogus").code)
}

func TestList_JSON(t *testing.T) {
	root := sandbox(t)
	dir := mkdir(t, filepath.Join(root, "proj"))
	require.Equal(t, herrors.ExitOK, hop(t, "add", dir).code)

	r := hop(t, "list", "--json")
	require.Equal(t, herrors.ExitOK, r.code, r.stderr)

	var got struct {
		Path   string `json:"path"`
		Visits int64  `json:"visits"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(r.stdout)), &got))
	assert.Equal(t, dir, got.Path)
	assert.Equal(t, int64(1), got.Visits)

	r = hop(t, "list")
	assert.Contains(t, r.stdout, "PATH")
	assert.Contains(t, r.stdout, dir)
}

func TestRemoveAndPrune(t *testing.T) {
	root := sandbox(t)
	a := mkdir(t, filepath.Join(root, "a"))
	b := mkdir(t, filepath.Join(root, "b"))
	hop(t, "add", a)
	hop(t, "add", b)

	require.Equal(t, herrors.ExitOK, hop(t, "remove", a).code)
	assert.Contains(t, hop(t, "remove", a).stderr, "not tracked")

	require.NoError(t, os.Remove(b))
	r := hop(t, "prune")
	assert.Equal(t, "Pruned 1 entries\n", r.stdout)
	assert.Equal(t, herrors.ExitNoMatch, hop(t, "search").code)
}

func TestCorruptStore(t *testing.T) {
	root := sandbox(t)
	data := mkdir(t, filepath.Join(root, "data"))
	require.NoError(t, os.WriteFile(filepath.Join(data, "hop.db"), bytes.Repeat([]byte("garbage!"), 512), 0o644))

	r := hop(t, "search", "x")
	assert.Equal(t, herrors.ExitCorrupt, r.code)
	assert.Contains(t, r.stderr, "hop.db")
}

func TestConfig_PrintsEffectiveValues(t *testing.T) {
	root := sandbox(t)
	t.Setenv("HOP_HALF_LIFE", "48h")

	r := hop(t, "config", "--data-dir", filepath.Join(root, "elsewhere"))
	require.Equal(t, herrors.ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, `half_life = "48h0m0s"`)
	assert.Contains(t, r.stdout, filepath.Join(root, "elsewhere"))

	t.Setenv("HOP_RESCALE_FACTOR", "1")
	r = hop(t, "config")
	assert.Equal(t, herrors.ExitUsage, r.code)
	assert.Contains(t, r.stderr, "rescale_factor")
}

func TestCheck(t *testing.T) {
	sandbox(t)
	r := hop(t, "check")
	assert.Equal(t, herrors.ExitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "ok")
}
