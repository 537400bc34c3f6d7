package main

import (
	"testing"
)

func TestRoutePoint_StaysOnRoute(t *testing.T) {
	// Jitter is at most 0.0005 degrees, so every interpolated point must
	// stay inside the route's bounding box plus that margin.
	const margin = 0.001

	minLat, maxLat := accraKumasiRoute[0][0], accraKumasiRoute[0][0]
	minLng, maxLng := accraKumasiRoute[0][1], accraKumasiRoute[0][1]
	for _, wp := range accraKumasiRoute {
		if wp[0] < minLat {
			minLat = wp[0]
		}
		if wp[0] > maxLat {
			maxLat = wp[0]
		}
		if wp[1] < minLng {
			minLng = wp[1]
		}
		if wp[1] > maxLng {
			maxLng = wp[1]
		}
	}

	for p := 0.0; p < 1.0; p += 0.005 {
		lat, lng := routePoint(p)
		if lat < minLat-margin || lat > maxLat+margin {
			t.Fatalf("routePoint(%v) lat = %v, want within [%v, %v]", p, lat, minLat-margin, maxLat+margin)
		}
		if lng < minLng-margin || lng > maxLng+margin {
			t.Fatalf("routePoint(%v) lng = %v, want within [%v, %v]", p, lng, minLng-margin, maxLng+margin)
		}
	}
}

func TestRoutePoint_Endpoints(t *testing.T) {
	accra := accraKumasiRoute[0]
	lat, lng := routePoint(0)
	if diff := lat - accra[0]; diff < -0.001 || diff > 0.001 {
		t.Errorf("routePoint(0) lat = %v, want near Accra %v", lat, accra[0])
	}
	if diff := lng - accra[1]; diff < -0.001 || diff > 0.001 {
		t.Errorf("routePoint(0) lng = %v, want near Accra %v", lng, accra[1])
	}

	kumasi := accraKumasiRoute[len(accraKumasiRoute)-1]
	lat, lng = routePoint(0.9999)
	if diff := lat - kumasi[0]; diff < -0.01 || diff > 0.01 {
		t.Errorf("routePoint(~1) lat = %v, want near Kumasi %v", lat, kumasi[0])
	}
	if diff := lng - kumasi[1]; diff < -0.01 || diff > 0.01 {
		t.Errorf("routePoint(~1) lng = %v, want near Kumasi %v", lng, kumasi[1])
	}
}
