package daemon

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/config"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/store"
)

func TestStartForeground_emptyHome(t *testing.T) {
	err := StartForeground(context.Background(), StartOptions{Home: ""})
	if err == nil {
		t.Fatal("StartForeground empty home: expected error")
	}
}

func TestStatus_noRecord(t *testing.T) {
	st, err := Status(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Running {
		t.Fatal("empty home must report not running")
	}
}

func TestStatus_liveRecord(t *testing.T) {
	home := t.TempDir()
	fs, err := store.NewFileStore(config.StateDir(home))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	rec := store.RuntimeRecord{PID: os.Getpid(), Wallet: "0xw", Identity: "trader", StartedAt: time.Now().UTC()}
	if err := fs.SetRuntimeRecord(rec); err != nil {
		t.Fatalf("set record: %v", err)
	}

	st, err := Status(context.Background(), home)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Running || st.PID != os.Getpid() || st.Identity != "trader" || st.Wallet != "0xw" {
		t.Fatalf("status = %+v", st)
	}
}

func TestStatus_staleRecordIsCleared(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("liveness probe is a stub on windows")
	}
	// A finished child gives a pid known to be dead.
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("cannot spawn child: %v", err)
	}
	deadPID := cmd.Process.Pid

	home := t.TempDir()
	fs, err := store.NewFileStore(config.StateDir(home))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	rec := store.RuntimeRecord{PID: deadPID, Wallet: "0xw", Identity: "trader", StartedAt: time.Now().UTC()}
	if err := fs.SetRuntimeRecord(rec); err != nil {
		t.Fatalf("set record: %v", err)
	}

	st, err := Status(context.Background(), home)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Running {
		t.Fatalf("dead pid %d must report not running", deadPID)
	}
	if _, err := fs.GetRuntimeRecord(); err == nil {
		t.Fatal("stale runtime record must be cleared")
	}
}

func TestStop_notRunning(t *testing.T) {
	stopped, err := Stop(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stopped {
		t.Fatal("nothing to stop, got stopped=true")
	}
}

func TestHealthMux(t *testing.T) {
	rec := store.RuntimeRecord{PID: 123, Identity: "trader", Wallet: "0xw"}
	mux := healthMux(rec, nil)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != 200 {
		t.Fatalf("health status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	if body["status"] != "ok" || body["identity"] != "trader" {
		t.Fatalf("health body = %v", body)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != 404 {
		t.Fatalf("metrics without handler should 404, got %d", w.Code)
	}
}

func TestAcquireLock_refusesSecondHolder(t *testing.T) {
	path := lockPath(t.TempDir())
	first, err := acquireLock(path)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer first.release()

	if _, err := acquireLock(path); err == nil {
		t.Fatal("second acquire must fail while first holds the lock")
	}

	first.release()
	second, err := acquireLock(path)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	second.release()
}
