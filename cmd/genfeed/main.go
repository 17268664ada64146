// Command genfeed produces a deterministic mock hazard FeatureCollection
// for local runs and test fixtures, and can serve it over HTTP so the
// service can be pointed at a fake feed.
//
// Usage:
//
//	go run ./cmd/genfeed -out testdata/hazards.json
//	go run ./cmd/genfeed -addr :9090 -api-key test-key
//
// In serve mode every path returns the same collection, which satisfies
// all endpoint variants the client tries. When -api-key is set, requests
// without a matching "Authorization: apikey <key>" header get a 401,
// which exercises the client's credential handling.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// baseTime pins all generated timestamps for reproducible fixtures.
var baseTime = time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)

type fixture struct {
	id       int
	category string
	headline string
	lat, lon float64
	advice   string
	roads    []string
	major    bool
}

// fixtures scatter hazards around Sydney; the first two sit within 10 km
// of the CBD, the rest are progressively further out.
var fixtures = []fixture{
	{id: 746001, category: "accident", headline: "Accident on Parramatta Rd", lat: -33.879, lon: 151.175, advice: "Expect delays", roads: []string{"Parramatta Rd"}, major: true},
	{id: 746002, category: "roadwork", headline: "Night roadwork on Anzac Bridge", lat: -33.869, lon: 151.185, advice: "Reduce speed", roads: []string{"Anzac Bridge"}},
	{id: 746003, category: "fire", headline: "Grass fire near M4", lat: -33.79, lon: 150.95, advice: "Avoid the area", roads: []string{"M4 Motorway"}, major: true},
	{id: 746004, category: "flooding", headline: "Road flooded at Windsor", lat: -33.61, lon: 150.82, advice: "Road closed"},
	{id: 746005, category: "breakdown", headline: "Breakdown in M5 tunnel", lat: -33.95, lon: 151.05, advice: "Merge right", roads: []string{"M5 Motorway"}},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "write the collection to this file")
	addr := flag.String("addr", "", "serve the collection over HTTP on this address")
	apiKey := flag.String("api-key", "", "require this apikey header in serve mode")
	flag.Parse()

	if *out == "" && *addr == "" {
		flag.Usage()
		return fmt.Errorf("need -out or -addr")
	}

	payload, err := json.MarshalIndent(collection(), "", "  ")
	if err != nil {
		return err
	}

	if *out != "" {
		if err := os.WriteFile(*out, payload, 0o644); err != nil {
			return err
		}
		log.Printf("wrote %d features to %s", len(fixtures), *out)
	}

	if *addr != "" {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if *apiKey != "" && r.Header.Get("Authorization") != "apikey "+*apiKey {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(payload) //nolint:errcheck // best-effort mock server
		})
		log.Printf("serving mock feed on %s", *addr)
		return http.ListenAndServe(*addr, handler)
	}
	return nil
}

func collection() map[string]any {
	features := make([]map[string]any, 0, len(fixtures))
	for i, f := range fixtures {
		created := baseTime.Add(-time.Duration(i+1) * time.Hour)
		roads := make([]map[string]any, 0, len(f.roads))
		for _, r := range f.roads {
			roads = append(roads, map[string]any{"roadName": r})
		}
		features = append(features, map[string]any{
			"id": f.id,
			"geometry": map[string]any{
				"type":        "Point",
				"coordinates": []float64{f.lon, f.lat},
			},
			"properties": map[string]any{
				"headline":     f.headline,
				"mainCategory": f.category,
				"adviceA":      f.advice,
				"roads":        roads,
				"created":      created.UnixMilli(),
				"lastUpdated":  baseTime.UnixMilli(),
				"start":        created.UnixMilli(),
				"isMajor":      f.major,
				"ended":        false,
			},
		})
	}
	return map[string]any{
		"type":     "FeatureCollection",
		"features": features,
	}
}
