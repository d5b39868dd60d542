// Command synthwave writes synthetic decoded-record files, one per station,
// for fixtures and demos. Station i records a burst of amplitude
// amp·(1 + i·step), so the expected intensity ordering is known.
//
// Usage:
//
//	go run ./cmd/synthwave \
//	  -out data/demo -stations 5 -amp 0.5 -step 0.5 \
//	  -raw -calibration data/demo-calibration.yaml
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/couchcryptid/seismic-intensity/internal/adapter/calibfile"
	"github.com/couchcryptid/seismic-intensity/internal/adapter/waveformfile"
	"github.com/couchcryptid/seismic-intensity/internal/domain"
	"github.com/couchcryptid/seismic-intensity/internal/synth"
)

var baseStart = time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for record files")
	stations := flag.Int("stations", 3, "number of stations")
	amp := flag.Float64("amp", 1.0, "horizontal peak acceleration of the first station, m/s²")
	step := flag.Float64("step", 0.5, "relative amplitude increase per station")
	rate := flag.Float64("rate", 100, "sample rate, Hz")
	duration := flag.Duration("duration", 60*time.Second, "record length")
	freq := flag.Float64("freq", 2, "burst frequency, Hz")
	noise := flag.Float64("noise", 0, "white noise standard deviation, m/s²")
	seed := flag.Uint64("seed", 1, "noise seed")
	raw := flag.Bool("raw", false, "write raw counts instead of acceleration")
	calibration := flag.String("calibration", "", "with -raw, write the matching calibration table here")
	incomplete := flag.Bool("incomplete", false, "omit the vertical component of the last station")
	flag.Parse()

	if *out == "" || *stations < 1 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out and a positive -stations")
	}

	// A ±2 g 24-bit logger, the default calibration.
	cal := domain.Calibration{FullScaleG: 2, ADCBits: domain.DefaultADCBits}
	sensitivity, err := cal.Sensitivity()
	if err != nil {
		return err
	}

	for i := range *stations {
		id := fmt.Sprintf("ST%02d", i+1)
		cfg := synth.Config{
			StationID:        id,
			Start:            baseStart.Add(time.Duration(i) * 250 * time.Millisecond),
			SampleRate:       *rate,
			Duration:         *duration,
			PeakAcceleration: *amp * (1 + float64(i)*(*step)),
			VerticalRatio:    0.6,
			FrequencyHz:      *freq,
			Noise:            *noise,
			Seed:             *seed + uint64(i),
		}
		if *raw {
			cfg.CountsPerMS2 = sensitivity
		}
		if *incomplete && i == *stations-1 {
			cfg.Omit = []domain.Component{domain.ComponentVertical}
		}

		recs, err := synth.Station(cfg)
		if err != nil {
			return err
		}
		path := filepath.Join(*out, id+".json")
		if err := waveformfile.Write(path, recs); err != nil {
			return fmt.Errorf("writing %s: %w", id, err)
		}
		log.Printf("%s: %d components, peak %.3f m/s² -> %s", id, len(recs), cfg.PeakAcceleration, path)
	}

	if *raw && *calibration != "" {
		if err := calibfile.Save(*calibration, domain.CalibrationTable{domain.DefaultStationKey: cal}); err != nil {
			return fmt.Errorf("writing calibration: %w", err)
		}
		log.Printf("wrote calibration table: %s", *calibration)
	}
	return nil
}
