package app

import (
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// DefaultReloadInterval is how often the running binary is checked for a
// rebuild during development.
const DefaultReloadInterval = 2 * time.Second

// HotReloader watches the running binary and fires a callback once a
// newer build appears on disk, so a development session can offer to
// restart into it.
type HotReloader struct {
	execPath      string
	baseline      time.Time
	checkInterval time.Duration
	stopCh        chan struct{}
	onNewBinary   func()
}

// NewHotReloader creates a reloader watching the current executable.
// Returns nil if the executable path cannot be determined.
func NewHotReloader(checkInterval time.Duration) *HotReloader {
	execPath, err := os.Executable()
	if err != nil {
		return nil
	}

	// go build replaces the file behind the symlink; watch the target.
	if realPath, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = realPath
	}

	info, err := os.Stat(execPath)
	if err != nil {
		return nil
	}

	return &HotReloader{
		execPath:      execPath,
		baseline:      info.ModTime(),
		checkInterval: checkInterval,
		stopCh:        make(chan struct{}),
	}
}

// OnNewBinary sets the callback invoked when a newer binary appears. It
// runs on the watcher goroutine, not the UI thread.
func (h *HotReloader) OnNewBinary(callback func()) {
	h.onNewBinary = callback
}

// Start begins watching in a background goroutine.
func (h *HotReloader) Start() {
	// Fresh stop channel in case the watcher is being restarted.
	h.stopCh = make(chan struct{})
	go h.watchLoop()
}

// Stop terminates the watcher goroutine.
func (h *HotReloader) Stop() {
	close(h.stopCh)
}

func (h *HotReloader) watchLoop() {
	ticker := time.NewTicker(h.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			if h.newerOnDisk() && h.onNewBinary != nil {
				// Fire once; the callback decides whether to rearm.
				h.onNewBinary()
				return
			}
		}
	}
}

// newerOnDisk reports whether the binary changed since the baseline.
func (h *HotReloader) newerOnDisk() bool {
	info, err := os.Stat(h.execPath)
	if err != nil {
		return false
	}
	return info.ModTime().After(h.baseline)
}

// ExecPath returns the path of the watched executable.
func (h *HotReloader) ExecPath() string {
	return h.execPath
}

// Baseline returns the modification time the watcher compares against.
func (h *HotReloader) Baseline() time.Time {
	return h.baseline
}

// ResetBaseline adopts the current binary's mod time as the new baseline.
// Called when the user declines a restart, so the same build does not
// prompt again.
func (h *HotReloader) ResetBaseline() {
	if info, err := os.Stat(h.execPath); err == nil {
		h.baseline = info.ModTime()
	}
}

// Restart replaces the current process with a new instance of the binary.
// Does not return on success.
func (h *HotReloader) Restart() error {
	return RestartProcess(h.execPath)
}

// RestartProcess execs the given binary in place of the current process,
// preserving arguments and environment. Does not return on success.
func RestartProcess(execPath string) error {
	return syscall.Exec(execPath, os.Args, os.Environ())
}
