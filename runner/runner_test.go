package runner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/cloudkucooland/farremote/action"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGet(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "power", r.URL.Query().Get("key"))
	}))
	defer srv.Close()

	r := New(time.Second, nil)
	o := r.HTTPGet(context.Background(), action.HTTPGet{URL: srv.URL + "/pub/remote_control?code=1&key=power"})
	assert.True(t, o.OK)
	assert.Equal(t, 200, o.Code)
	assert.NoError(t, o.Err)
	assert.Equal(t, 1, hits)
}

func TestHTTPGetErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	o := New(time.Second, nil).HTTPGet(context.Background(), action.HTTPGet{URL: srv.URL})
	assert.False(t, o.OK)
	assert.Equal(t, 403, o.Code)

	var ae *ActionError
	require.ErrorAs(t, o.Err, &ae)
	assert.Equal(t, action.KindHTTPGet, ae.Kind)
}

func TestHTTPGetUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	o := New(time.Second, nil).HTTPGet(context.Background(), action.HTTPGet{URL: url})
	assert.False(t, o.OK)
	assert.Equal(t, 0, o.Code)
	assert.Error(t, o.Err)
}

func TestHTTPGetTimeout(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	defer close(done)

	start := time.Now()
	o := New(100*time.Millisecond, nil).HTTPGet(context.Background(), action.HTTPGet{URL: srv.URL})
	assert.False(t, o.OK)
	assert.Less(t, time.Since(start), 1500*time.Millisecond)
}

func TestHTTPPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "volume=10", string(body))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	o := New(time.Second, nil).HTTPPost(context.Background(), action.HTTPPost{URL: srv.URL, Body: "volume=10"})
	assert.True(t, o.OK)
	assert.Equal(t, 202, o.Code)
}

func TestTestURL(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	code, err := New(time.Second, nil).TestURL(context.Background(), srv.URL)
	assert.Equal(t, 404, code)
	assert.Error(t, err)
}

func TestSplitArgs(t *testing.T) {
	assert.Equal(t, []string{"-v", "on", "living"}, SplitArgs(" -v  on\tliving "))
	assert.Empty(t, SplitArgs(""))
}

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "act.sh")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return p
}

func TestProcessSpawn(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	hook := logtest.NewGlobal()
	dir := t.TempDir()
	p := writeScript(t, dir, `echo "$#" > count; echo hello; echo oops >&2`)

	o := New(time.Second, nil).ProcessSpawn(context.Background(), action.ProcessSpawn{Path: p, Args: SplitArgs("a b  c")})
	require.True(t, o.OK, o.String())
	assert.Equal(t, 0, o.Code)

	// stdout goes to info, stderr to error
	assert.True(t, logged(hook, logrus.InfoLevel, "hello"))
	assert.True(t, logged(hook, logrus.ErrorLevel, "oops"))
	assert.False(t, logged(hook, logrus.ErrorLevel, "hello"))

	// relative path lands in the executable's directory
	raw, err := os.ReadFile(filepath.Join(dir, "count"))
	require.NoError(t, err)
	assert.Equal(t, "3\n", string(raw))
}

func logged(hook *logtest.Hook, level logrus.Level, msg string) bool {
	for _, e := range hook.AllEntries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

func TestProcessSpawnLongLines(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	// one line that is logged whole, one longer than the scanner will take
	for _, size := range []int{300000, 3 * maxLine} {
		hook := logtest.NewGlobal()
		p := writeScript(t, t.TempDir(), fmt.Sprintf(`head -c %d /dev/zero | tr '\0' a; echo; echo done; echo late >&2`, size))

		finished := make(chan action.Outcome, 1)
		go func() {
			finished <- New(time.Second, nil).ProcessSpawn(context.Background(), action.ProcessSpawn{Path: p})
		}()

		select {
		case o := <-finished:
			assert.True(t, o.OK, o.String())
		case <-time.After(10 * time.Second):
			t.Fatalf("%d byte line: process never finished", size)
		}
		assert.True(t, logged(hook, logrus.ErrorLevel, "late"), "%d byte line", size)
		if size < maxLine {
			assert.True(t, logged(hook, logrus.InfoLevel, "done"))
			assert.True(t, logged(hook, logrus.InfoLevel, strings.Repeat("a", size)))
		}
	}
}

func TestProcessSpawnExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	p := writeScript(t, t.TempDir(), "exit 4")

	o := New(time.Second, nil).ProcessSpawn(context.Background(), action.ProcessSpawn{Path: p})
	assert.False(t, o.OK)
	assert.Equal(t, 4, o.Code)
}

func TestProcessSpawnMissing(t *testing.T) {
	o := New(time.Second, nil).ProcessSpawn(context.Background(), action.ProcessSpawn{Path: filepath.Join(t.TempDir(), "nope")})
	assert.False(t, o.OK)

	var ae *ActionError
	require.ErrorAs(t, o.Err, &ae)
	assert.Equal(t, action.KindProcess, ae.Kind)
}

func TestScript(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("needs /bin/sh")
	}
	r := New(time.Second, &Interpreter{Path: "/bin/sh"})
	require.True(t, r.HasInterpreter())

	o := r.Script(context.Background(), action.Script{Input: "echo from stdin\nexit 3\n"})
	assert.False(t, o.OK)
	assert.Equal(t, 3, o.Code)

	o = r.Script(context.Background(), action.Script{Input: "true"})
	assert.True(t, o.OK)
}

func TestScriptUnavailable(t *testing.T) {
	r := New(time.Second, &Interpreter{})
	assert.False(t, r.HasInterpreter())

	o := r.Script(context.Background(), action.Script{Input: "Send {Volume_Up}"})
	assert.False(t, o.OK)
	assert.ErrorIs(t, o.Err, ErrNoInterpreter)
}

func TestDebug(t *testing.T) {
	o := New(0, nil).Debug(context.Background(), action.Debug{})
	assert.True(t, o.NoResult)
	assert.True(t, o.OK)
}
