package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/hop/internal/domain"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func sample() []domain.Scored {
	return []domain.Scored{
		{Entry: domain.Entry{Path: "/home/u/work", Visits: 1234, LastVisited: now.Add(-2 * time.Hour)}, FrecencyScore: 7.1},
		{Entry: domain.Entry{Path: "/home/u/personal", Visits: 3, LastVisited: now.Add(-72 * time.Hour)}, FrecencyScore: 1.25},
	}
}

func TestPaths(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Paths(&buf, sample()))
	assert.Equal(t, "/home/u/work\n/home/u/personal\n", buf.String())
}

func TestJSON_OneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sample()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got jsonEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, "/home/u/work", got.Path)
	assert.Equal(t, int64(1234), got.Visits)
	assert.True(t, got.LastVisited.Equal(now.Add(-2*time.Hour)))
	assert.InDelta(t, 7.1, got.Frecency, 1e-9)
}

func TestJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestTable_Plain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, sample(), now, false))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "FRECENCY  VISITS  LAST VISIT   PATH", lines[0])
	assert.Equal(t, "    7.10   1,234  2 hours ago  /home/u/work", lines[1])
	assert.Equal(t, "    1.25       3  3 days ago   /home/u/personal", lines[2])
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestTable_HeaderOnlyWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, nil, now, true))
	assert.Contains(t, buf.String(), "PATH")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}
