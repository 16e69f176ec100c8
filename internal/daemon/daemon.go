package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/config"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/events"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/identity"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/market"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/offering"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/otel"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/seller"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/store"
)

const defaultHealthAddr = "127.0.0.1:3648"

// ErrAlreadyRunning reports that a live seller runtime holds this home.
var ErrAlreadyRunning = errors.New("seller runtime is already running")

// StartForeground runs the seller runtime in the calling process until ctx is
// cancelled. One runtime per home: the flock guards the start window, the
// runtime record in the store is the durable claim.
func StartForeground(ctx context.Context, opts StartOptions) error {
	if opts.Home == "" {
		return errors.New("home is required")
	}
	if opts.HealthAddr == "" {
		opts.HealthAddr = defaultHealthAddr
	}

	if err := os.MkdirAll(runtimeDir(opts.Home), 0o755); err != nil {
		return err
	}

	lock, err := acquireLock(lockPath(opts.Home))
	if err != nil {
		return err
	}
	defer lock.release()

	startPprof(opts.PprofAddr)

	st, err := store.NewFileStore(config.StateDir(opts.Home))
	if err != nil {
		return err
	}
	if rec, live := liveRecord(st); live {
		return fmt.Errorf("%w (pid %d, identity %s)", ErrAlreadyRunning, rec.PID, rec.Identity)
	}

	profile, err := resolveProfile(opts.Home, st, opts.Identity)
	if err != nil {
		return err
	}

	if err := checkAddrAvailable(opts.HealthAddr); err != nil {
		return err
	}

	rec := store.RuntimeRecord{
		PID:       os.Getpid(),
		Wallet:    profile.Wallet,
		Identity:  profile.Name,
		StartedAt: time.Now().UTC(),
	}
	if err := st.SetRuntimeRecord(rec); err != nil {
		return err
	}
	_ = os.WriteFile(addrPath(opts.Home), []byte(opts.HealthAddr+"\n"), 0o644)
	defer func() {
		_ = st.ClearRuntimeRecord()
		_ = os.Remove(addrPath(opts.Home))
	}()

	metricsHandler, err := otel.InitMeterProvider(ctx, "sentinel")
	if err != nil {
		slog.Warn("metrics init failed, /metrics disabled", "error", err)
	} else if err := otel.InitMetrics(ctx); err != nil {
		slog.Warn("instrument registration failed", "error", err)
	}
	srv := &http.Server{Addr: opts.HealthAddr, Handler: healthMux(rec, metricsHandler)}

	machine := &seller.Machine{
		Market:    market.New(config.MarketURL(opts.MarketURL), profile.APIKey),
		Offerings: &offering.Registry{Home: opts.Home},
		Identity:  identity.Slug(profile.Name),
	}
	runtime := &seller.Runtime{
		Machine: machine,
		Channel: events.NewNATSChannel(config.EventsURL(opts.EventsURL)),
		Profile: *profile,
	}

	slog.Info("seller runtime starting",
		"home", opts.Home, "identity", profile.Name, "wallet", profile.Wallet, "health", opts.HealthAddr)

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe() }()
	runErr := make(chan error, 1)
	go func() { runErr <- runtime.Run(ctx) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-runErr
		return nil
	case err := <-runErr:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return err
	case err := <-srvErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// StartBackground re-execs the binary as a detached foreground runtime and
// waits briefly for it to claim the home.
func StartBackground(ctx context.Context, opts StartOptions) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(runtimeDir(opts.Home), 0o755); err != nil {
		return 0, err
	}
	if st, _ := Status(ctx, opts.Home); st.Running {
		return 0, fmt.Errorf("%w (pid %d, identity %s)", ErrAlreadyRunning, st.PID, st.Identity)
	}

	logFile, err := os.OpenFile(logPath(opts.Home), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	// Kept open for the child's lifetime.

	args := []string{"seller", "run", "--home", opts.Home}
	if opts.Identity != "" {
		args = append(args, "--identity", opts.Identity)
	}
	if opts.HealthAddr != "" {
		args = append(args, "--health-addr", opts.HealthAddr)
	}
	if opts.PprofAddr != "" {
		args = append(args, "--pprof", opts.PprofAddr)
	}

	cmd := exec.Command(exe, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = logFile
	setDaemonSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st, _ := Status(ctx, opts.Home); st.Running {
			return st.PID, nil
		}
		time.Sleep(50 * time.Millisecond)
	}

	// The record may not be written yet; report the spawned pid.
	return cmd.Process.Pid, nil
}

// Stop signals the running runtime and waits for it to release the home.
func Stop(ctx context.Context, home string) (bool, error) {
	st, err := Status(ctx, home)
	if err != nil {
		return false, err
	}
	if !st.Running {
		return false, nil
	}

	proc, err := os.FindProcess(st.PID)
	if err != nil {
		return false, err
	}
	if err := signalTerm(proc); err != nil {
		return false, err
	}

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if st2, _ := Status(ctx, home); !st2.Running {
			return true, nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	_ = proc.Kill()
	return true, nil
}

// Status reports the runtime record for a home. A record whose process is
// dead is cleared and reported as not running.
func Status(_ context.Context, home string) (StatusInfo, error) {
	st, err := store.NewFileStore(config.StateDir(home))
	if err != nil {
		return StatusInfo{}, err
	}
	rec, live := liveRecord(st)
	if !live {
		return StatusInfo{Running: false}, nil
	}

	addr := ""
	if ab, err := os.ReadFile(addrPath(home)); err == nil {
		addr = strings.TrimSpace(string(ab))
	}
	return StatusInfo{
		Running:   true,
		PID:       rec.PID,
		Identity:  rec.Identity,
		Wallet:    rec.Wallet,
		Addr:      addr,
		StartedAt: rec.StartedAt,
	}, nil
}

// liveRecord returns the runtime record if its process is alive. A stale
// record is removed so a crashed runtime does not block the next start.
func liveRecord(st store.Store) (store.RuntimeRecord, bool) {
	rec, err := st.GetRuntimeRecord()
	if err != nil {
		return store.RuntimeRecord{}, false
	}
	if !processExists(rec.PID) {
		_ = st.ClearRuntimeRecord()
		return store.RuntimeRecord{}, false
	}
	return rec, true
}

func resolveProfile(home string, st store.Store, name string) (*identity.Profile, error) {
	if name != "" {
		p, err := identity.Load(home, name)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("no agent profile named %q", name)
		}
		return p, nil
	}
	return identity.Active(home, st)
}

func healthMux(rec store.RuntimeRecord, metricsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"pid":      rec.PID,
			"identity": rec.Identity,
			"wallet":   rec.Wallet,
			"started":  rec.StartedAt,
		})
	})
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	return mux
}

func checkAddrAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("health address %s is already in use", addr)
	}
	_ = ln.Close()
	return nil
}
