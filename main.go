// Package main provides the entry point for the Cutout Studio application.
package main

import (
	"log"
	"os"

	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"

	"cutout-studio/internal/app"
	"cutout-studio/internal/config"
	"cutout-studio/internal/version"
	"cutout-studio/ui/mainwindow"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s %s", version.AppName, version.Version)

	fyneApp := fyneapp.NewWithID("io.cutoutstudio.app")
	fyneApp.Settings().SetTheme(&app.CutoutTheme{})

	settings := config.Load()
	state := app.NewState(settings)

	win := mainwindow.New(fyneApp, state)

	// Open an image given on the command line.
	if len(os.Args) > 1 {
		path := os.Args[1]
		if err := state.LoadImage(path, 800, 600); err != nil {
			log.Printf("Failed to load image %s: %v", path, err)
		}
	}

	setupHotReload(win)

	win.SetOnClosed(func() {
		win.StopPolling()
		if err := state.SaveSettings(); err != nil {
			log.Printf("Failed to save settings: %v", err)
		}
		state.Close()
	})

	win.ShowAndRun()
}

// setupHotReload configures automatic restart detection when the binary is recompiled.
func setupHotReload(win *mainwindow.MainWindow) {
	reloader := app.NewHotReloader(app.DefaultReloadInterval)
	if reloader == nil {
		log.Println("Hot reload: unable to determine executable path")
		return
	}

	log.Printf("Hot reload: watching %s (modified %s)",
		reloader.ExecPath(), reloader.Baseline().Format("15:04:05"))

	reloader.OnNewBinary(func() {
		log.Println("Hot reload: newer binary detected")
		dialog.ShowConfirm("New Build Detected",
			"A newer "+version.AppName+" binary was just compiled.\nRestart into it?",
			func(restart bool) {
				if restart {
					log.Println("Hot reload: restarting...")
					if err := reloader.Restart(); err != nil {
						log.Printf("Hot reload: restart failed: %v", err)
					}
					return
				}
				reloader.ResetBaseline()
				reloader.Start()
			}, win.Window)
	})

	reloader.Start()
}
