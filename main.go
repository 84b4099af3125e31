package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"coverme/audio"
	"coverme/config"
	"coverme/doctor"
	"coverme/haptic"
	"coverme/hotkey"
	"coverme/log"
	"coverme/session"
	"coverme/shutdown"
)

var version = "dev"

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if dev.Headset {
			suffix = " (BT, lower quality)"
		}
	}
	return "mic: " + name + suffix
}

// headsetName names the headset shown once the connection is up. It is
// empty unless the microphone is a wireless headset.
func headsetName(dev *audio.DeviceInfo) string {
	if dev == nil || !dev.Headset {
		return ""
	}
	return dev.Name
}

func run() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if cfg.Version {
		fmt.Printf("coverme %s\n", version)
		os.Exit(0)
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if !cfg.Haptics {
		haptic.Disable()
	}

	if cfg.Doctor {
		os.Exit(doctor.Run(doctor.DefaultEnv(cfg.Device, cfg.RecordingsDir, cfg.Preset)))
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	if cfg.Test {
		code := runTestMode(cfg, os.Stdin, os.Stdout)
		log.Close()
		os.Exit(code)
	}

	os.Exit(runSession(cfg))
}

func runSession(cfg config.Config) int {
	var hooks shutdown.Hooks
	defer hooks.Run()
	hooks.Add(log.Close)

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		return 1
	}
	hooks.Add(actx.Close)

	var selectedDevice *audio.DeviceInfo
	switch {
	case cfg.Device != "":
		selectedDevice, err = audio.FindDevice(actx, cfg.Device)
		if err != nil {
			log.Warnf("device lookup failed: %v", err)
			fmt.Printf("Warning: %v\n", err)
			fmt.Println("Falling back to default device")
		}
	case cfg.Setup:
		selectedDevice, err = audio.SelectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}
	if selectedDevice != nil {
		log.Info("recording_device: " + selectedDevice.Name)
	}

	sub := audio.NewCaptureSubsystem(actx, selectedDevice, cfg.RecordingsDir)
	ctrl := session.New(sub, haptic.New(), session.Options{Preset: cfg.Preset})
	hooks.Add(ctrl.Unmount)

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	var hk hotkey.Hotkey
	if cfg.Hotkey {
		hk = hotkey.New()
		if err := hk.Register(); err != nil {
			log.Warnf("hotkey register error: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: global hotkey unavailable: %v\n", err)
			hk = nil
		} else {
			hooks.Add(hk.Unregister)
		}
	}

	var presenter Presenter
	uiDone := make(chan struct{})
	if cfg.TUI {
		m := newTUIModel(ctx, ctrl, ctrl.State(), hk != nil)
		m.deviceLine = deviceLineText(selectedDevice)
		m.headset = headsetName(selectedDevice)
		tuiMu.Lock()
		tuiProgram = NewTUIProgram(m)
		tuiMu.Unlock()
		presenter = tuiPresenter{}

		go func() {
			defer close(uiDone)
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
			stop()
		}()
		hooks.Add(func() {
			tuiProgram.Quit()
			<-uiDone
		})
	} else {
		close(uiDone)
		lp := newLinePresenter(os.Stdout)
		lp.headset = headsetName(selectedDevice)
		presenter = lp
		fmt.Println("CoverMe - Your AI Conversation Assistant")
		fmt.Println(deviceLineText(selectedDevice))
	}
	ctrl.Subscribe(presenter.State)

	go func() {
		if err := ctrl.Mount(ctx); err != nil && !errors.Is(err, session.ErrUnmounted) {
			presenter.Notice("Microphone access is required (press r to retry)")
		}
	}()

	if hk != nil {
		go func() {
			for range hotkey.Presses(ctx, hk) {
				log.Info("hotkey_toggle")
				if err := ctrl.Toggle(ctx); err != nil {
					log.Warnf("toggle: %v", err)
					if n := commandNotice(commandDoneMsg{op: "toggle", err: err}); n != "" {
						presenter.Notice(n)
					}
				}
			}
		}()
	}

	<-ctx.Done()
	return 0
}
