package app

import "testing"

func TestHotReloaderWatchesRunningBinary(t *testing.T) {
	h := NewHotReloader(DefaultReloadInterval)
	if h == nil {
		t.Skip("executable path unavailable")
	}
	if h.ExecPath() == "" {
		t.Error("empty exec path")
	}
	if h.Baseline().IsZero() {
		t.Error("zero baseline mod time")
	}
	if h.newerOnDisk() {
		t.Error("fresh reloader already reports a newer binary")
	}
	h.Start()
	h.Stop()
}
