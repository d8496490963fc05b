package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodiesEqualIgnoresVolatileMeta(t *testing.T) {
	a := []byte(`{"data":{"id":"s1","balance":10},"meta":{"cache_hit":true,"processing_time_ms":3,"request_id":"r1"}}`)
	b := []byte(`{"data":{"balance":10,"id":"s1"},"meta":{"cache_hit":false,"processing_time_ms":9,"request_id":"r2"}}`)
	assert.True(t, bodiesEqual(a, b))

	c := []byte(`{"data":{"id":"s1","balance":11}}`)
	assert.False(t, bodiesEqual(a, c))
	assert.False(t, bodiesEqual(a, []byte("not json")))
}

func TestCompareTargetsDefaults(t *testing.T) {
	targets, err := compareTargets("", []string{"s1"})
	require.NoError(t, err)
	require.Len(t, targets, 6)
	assert.Equal(t, "/students/s1/summary", targets[3].Path)
	assert.False(t, targets[5].Critical, "notifications are informational")
}

func TestCompareTargetsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"targets":[{"method":"GET","path":"/courses","critical":true}]}`), 0o600))

	targets, err := compareTargets(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []target{{Method: "GET", Path: "/courses", Critical: true}}, targets)

	require.NoError(t, os.WriteFile(path, []byte(`{"targets":[]}`), 0o600))
	_, err = compareTargets(path, nil)
	assert.Error(t, err)
}

func TestCompareTargetAgainstTwoServers(t *testing.T) {
	serve := func(balance string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"data":{"balance":` + balance + `}}`))
		}))
	}
	a, b, c := serve("10"), serve("10"), serve("12")
	defer a.Close()
	defer b.Close()
	defer c.Close()
	client := &http.Client{Timeout: time.Second}
	tgt := target{Method: http.MethodGet, Path: "students/s1", Critical: true}

	same := compareTarget(client, "tok", a.URL, b.URL, tgt)
	require.NoError(t, same.Err)
	assert.False(t, same.differs())

	diff := compareTarget(client, "tok", a.URL, c.URL, tgt)
	assert.True(t, diff.differs())

	var buf bytes.Buffer
	printReport(&buf, []comparison{same, diff})
	assert.True(t, strings.HasSuffix(strings.TrimSpace(buf.String()), "1 of 2 endpoints differ"))
	assert.Contains(t, buf.String(), "[DIFF] GET students/s1")
}
