package main

import (
	"context"
	"time"

	"github.com/swipswaps/DockerOCR/ocr"
)

// This is our interface, allowing us to enable proper testing
type ReadinessProber interface {
	checkEngineReady(ctx context.Context) error
	setEngineReady(ready bool)
}

// proberConfig controls how often the engine is polled.
type proberConfig struct {
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
	PollInterval time.Duration
	CheckTimeout time.Duration
}

func defaultProberConfig() proberConfig {
	return proberConfig{
		MinBackoff:   2 * time.Second,
		MaxBackoff:   time.Minute,
		PollInterval: 30 * time.Second,
		CheckTimeout: 5 * time.Second,
	}
}

// StartReadinessProber polls the engine in a goroutine until ctx is cancelled. While the
// engine is loading its models the probe backs off exponentially.
func StartReadinessProber(ctx context.Context, app ReadinessProber, cfg proberConfig) {
	go func() {
		backoffDuration := cfg.MinBackoff
		wasReady := false

		for {
			checkCtx, cancel := context.WithTimeout(ctx, cfg.CheckTimeout)
			err := app.checkEngineReady(checkCtx)
			cancel()

			var wait time.Duration
			if err != nil {
				if ctx.Err() != nil {
					log.Infoln("Readiness prober shutting down")
					return
				}
				if wasReady {
					log.Warnf("OCR engine is no longer ready: %v", err)
				} else {
					log.Debugf("OCR engine not ready yet: %v", err)
				}
				app.setEngineReady(false)
				wasReady = false

				wait = backoffDuration
				// Exponential backoff logic
				backoffDuration *= 2
				if backoffDuration > cfg.MaxBackoff {
					backoffDuration = cfg.MaxBackoff
				}
			} else {
				if !wasReady {
					log.Infoln("OCR engine is ready")
				}
				app.setEngineReady(true)
				wasReady = true

				// Reset backoff when the engine answers
				backoffDuration = cfg.MinBackoff
				wait = cfg.PollInterval
			}

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Infoln("Readiness prober shutting down")
				return
			case <-timer.C:
			}
		}
	}()
}

// checkEngineReady asks the provider whether it can serve requests. Providers without a
// readiness probe are assumed ready.
func (app *App) checkEngineReady(ctx context.Context) error {
	if hc, ok := app.Provider.(ocr.HealthChecker); ok {
		return hc.Ready(ctx)
	}
	return nil
}

func (app *App) setEngineReady(ready bool) {
	app.engineReady.Store(ready)
}
