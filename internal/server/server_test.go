package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiolibrelab/fieldcapture/internal/schedule"
)

type fixedStatus schedule.Status

func (f fixedStatus) Status() schedule.Status { return schedule.Status(f) }

func newTestServer(t *testing.T, status StatusSource) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(New(":0", StaticDir(dir), status, logger).Handler())
	t.Cleanup(ts.Close)
	return ts, dir
}

func writeTake(t *testing.T, path string, size int, mod time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestStatusReportsDriverState(t *testing.T) {
	next := time.Date(2026, 5, 1, 10, 0, 20, 0, time.Local)
	ts, dir := newTestServer(t, fixedStatus{
		State:         schedule.StateWaiting,
		Session:       2,
		TotalSessions: 4,
		NextStart:     next,
		Completed:     1,
	})

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, schedule.StateWaiting, body.Status.State)
	assert.Equal(t, 2, body.Status.Session)
	assert.Equal(t, "Waiting for session 2 of 4 at 10:00:20", body.Message)
	assert.Equal(t, dir, body.Directory)
}

func TestStatusWithoutRun(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "No active run", body.Message)
}

func TestStatusRejectsPost(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/status", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Method not allowed", body["error"])
}

func TestFilesListsTakesNewestFirst(t *testing.T) {
	ts, dir := newTestServer(t, nil)
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.Local)
	writeTake(t, filepath.Join(dir, "dawn_20260501_100000", "dawn_1.wav"), 2048, base)
	writeTake(t, filepath.Join(dir, "dawn_20260501_100000", "dawn_2.wav"), 100, base.Add(time.Minute))
	writeTake(t, filepath.Join(dir, "dawn_20260501_100000", "run.yaml"), 10, base)

	resp, err := http.Get(ts.URL + "/api/files")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body FilesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 2, body.TotalCount)
	assert.Equal(t, "dawn_20260501_100000/dawn_2.wav", body.Files[0].Name)
	assert.Equal(t, "dawn_20260501_100000/dawn_1.wav", body.Files[1].Name)
	assert.Equal(t, "2.0 KB", body.Files[1].SizeHuman)
	assert.Equal(t, "/api/files/stream/dawn_20260501_100000/dawn_1.wav", body.Files[1].StreamURL)
}

func TestFileStream(t *testing.T) {
	ts, dir := newTestServer(t, nil)
	writeTake(t, filepath.Join(dir, "run", "take_1.wav"), 64, time.Now())

	resp, err := http.Get(ts.URL + "/api/files/stream/run/take_1.wav")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Len(t, data, 64)

	missing, err := http.Get(ts.URL + "/api/files/stream/run/take_9.wav")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestResolveTakeRejectsEscapes(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"take_1.wav", true},
		{"run/take_1.wav", true},
		{"../secret.wav", false},
		{"run/../../secret.wav", false},
		{"run\\take_1.wav", false},
		{"run/notes.txt", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := resolveTake("/data", tt.name)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KB", formatBytes(1024))
	assert.Equal(t, "1.5 MB", formatBytes(1536*1024))
}
