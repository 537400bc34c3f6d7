package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// accraCenter is the loop's midpoint.
var accraCenter = [2]float64{5.6037, -0.1870}

// StartFakeDevice posts a synthetic GPS fix to the tracker every interval,
// moving the bus in a slow circle around central Accra. It returns when the
// context is cancelled. Call this in a goroutine alongside the tracker.
func StartFakeDevice(ctx context.Context, baseURL string, interval time.Duration) {
	client := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	angle := 0.0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		lat := accraCenter[0] + 0.02*math.Sin(angle)
		lng := accraCenter[1] + 0.02*math.Cos(angle)
		speed := float64(20 + rand.Intn(40))
		if rand.Intn(10) == 0 {
			speed = 0 // stuck in Accra traffic
		}
		angle += 0.1

		body, err := json.Marshal(map[string]float64{
			"lat":   lat,
			"lng":   lng,
			"speed": speed,
		})
		if err != nil {
			slog.Error("failed to encode fix", "error", err)
			continue
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/ingest", bytes.NewReader(body))
		if err != nil {
			slog.Error("failed to build request", "error", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			// expected while the tracker is still starting
			continue
		}
		resp.Body.Close()
	}
}
