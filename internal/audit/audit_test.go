package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notekiln/notekiln/internal/logging"
)

func TestRecordWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	a := NewWithSink(&buf, logging.NewTestLogger())

	a.RecordExportAttempt("/data/notebooks/demo.py", "/site/notebooks/demo.html", true, "")
	a.RecordTemplateRender("/data/templates/index.tmpl", false, "syntax error")

	scanner := bufio.NewScanner(&buf)
	var events []Event
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.Len(t, events, 2)

	assert.Equal(t, EventExportAttempt, events[0].EventType)
	assert.True(t, events[0].Success)
	assert.Equal(t, "demo.py", events[0].Detail["source"])
	assert.Equal(t, "demo.html", events[0].Detail["output"])

	assert.Equal(t, EventTemplateRender, events[1].EventType)
	assert.False(t, events[1].Success)
	assert.Equal(t, "index.tmpl", events[1].Detail["template"])

	for _, e := range events {
		assert.Equal(t, time.UTC, e.Timestamp.Location())
		assert.WithinDuration(t, time.Now().UTC(), e.Timestamp, time.Minute)
	}
}

func TestRecordSanitizesDetailValues(t *testing.T) {
	var buf bytes.Buffer
	a := NewWithSink(&buf, logging.NewTestLogger())

	a.Record(EventExportAttempt, false, map[string]string{
		"detail": "converter wrote to /var/lib/secrets/output.html unexpectedly",
	})

	var e Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &e))
	assert.NotContains(t, e.Detail["detail"], "/var/lib/secrets")
	assert.Contains(t, e.Detail["detail"], "output.html")
}

func TestDisabledLoggerDropsEvents(t *testing.T) {
	var buf bytes.Buffer
	a := Logger{enabled: false, log: logging.NewTestLogger(), sink: &buf}

	a.RecordFileWrite("/site/index.html", true, "")
	assert.Empty(t, buf.String())
	assert.False(t, a.Enabled())
}

func TestDisabledNewNeverTouchesFilesystem(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "audit.log")

	a, err := New(false, logFile, logging.NewTestLogger())
	require.NoError(t, err)
	a.RecordFileWrite("/site/index.html", true, "")
	require.NoError(t, a.Close())

	_, err = os.Stat(logFile)
	assert.True(t, os.IsNotExist(err))
}

func TestFileSinkAppends(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "logs", "audit.log")

	a, err := New(true, logFile, logging.NewTestLogger())
	require.NoError(t, err)
	a.RecordFileWrite("/site/index.html", true, "")
	require.NoError(t, a.Close())

	b, err := New(true, logFile, logging.NewTestLogger())
	require.NoError(t, err)
	b.RecordFileWrite("/site/index.html", true, "second run")
	require.NoError(t, b.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("\n")))
}

func TestConcurrentRecordsStayLineSeparated(t *testing.T) {
	var buf bytes.Buffer
	a := NewWithSink(&buf, logging.NewTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				a.RecordExportAttempt("demo.py", "demo.html", true, "")
			}
		}()
	}
	wg.Wait()

	scanner := bufio.NewScanner(&buf)
	count := 0
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		count++
	}
	assert.Equal(t, 200, count)
}
