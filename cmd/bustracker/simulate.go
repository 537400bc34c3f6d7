package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// accraKumasiRoute is a coarse set of waypoints along the N6 between
// Accra and Kumasi. The simulator interpolates between them.
var accraKumasiRoute = [][2]float64{
	{5.6037, -0.1870}, // Accra
	{5.6800, -0.3300},
	{5.8100, -0.6200}, // Nsawam
	{5.9300, -0.9900}, // Suhum
	{6.0900, -1.2600}, // Kibi junction
	{6.2000, -1.3300},
	{6.4700, -1.4700},
	{6.6885, -1.6244}, // Kumasi
}

// simulateCmd feeds synthetic GPS fixes to a running tracker.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Send synthetic GPS fixes to a running tracker",
	Long: `Send synthetic GPS fixes to a running tracker, moving a virtual bus
along the Accra-Kumasi road.

This is a development aid: it exercises the ingest endpoint, the live
map and the staleness monitor without real hardware.

Example:
  bustracker simulate
  bustracker simulate --url http://localhost:3000 --interval 2s
  bustracker simulate --token s3cret`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().String("url", "http://localhost:3000", "base URL of the running tracker")
	simulateCmd.Flags().Duration("interval", 3*time.Second, "time between fixes")
	simulateCmd.Flags().String("token", "", "bearer token for the ingest endpoint")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	baseURL, _ := cmd.Flags().GetString("url")
	interval, _ := cmd.Flags().GetDuration("interval")
	token, _ := cmd.Flags().GetString("token")

	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: 10 * time.Second}
	logger.Info("simulator starting", "url", baseURL, "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// progress in [0, 1) along the whole route, wrapping at Kumasi
	progress := 0.0
	step := 0.01

	for {
		lat, lng := routePoint(progress)
		speed := 40 + rand.Float64()*40 // urban to highway band
		if rand.Float64() < 0.1 {
			speed = 0 // the occasional stop
		}

		if err := postFix(ctx, client, baseURL, token, lat, lng, speed); err != nil {
			logger.Warn("fix rejected", "error", err)
		} else {
			logger.Info("fix sent", "lat", lat, "lng", lng, "speed", speed)
		}

		progress += step
		if progress >= 1 {
			progress = 0
		}

		select {
		case <-ctx.Done():
			logger.Info("simulator stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// routePoint interpolates linearly between waypoints for a progress value
// in [0, 1).
func routePoint(progress float64) (lat, lng float64) {
	segments := len(accraKumasiRoute) - 1
	pos := progress * float64(segments)
	i := int(math.Floor(pos))
	if i >= segments {
		i = segments - 1
	}
	frac := pos - float64(i)

	a, b := accraKumasiRoute[i], accraKumasiRoute[i+1]
	lat = a[0] + (b[0]-a[0])*frac
	lng = a[1] + (b[1]-a[1])*frac

	// small jitter so consecutive runs do not retrace exactly
	lat += (rand.Float64() - 0.5) * 0.001
	lng += (rand.Float64() - 0.5) * 0.001
	return lat, lng
}

func postFix(ctx context.Context, client *http.Client, baseURL, token string, lat, lng, speed float64) error {
	body, err := json.Marshal(map[string]float64{
		"lat":   lat,
		"lng":   lng,
		"speed": math.Round(speed),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/ingest", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ingest returned status %d", resp.StatusCode)
	}
	return nil
}
