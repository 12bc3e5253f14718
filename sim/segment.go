package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emission-sim/emission-sim/sim/trace"
)

// SegmentConfig describes one block of consecutive history indices.
type SegmentConfig struct {
	First   int
	Num     int
	Bias    float64
	Workers int // 0 = one per CPU
	// PacketLuminosity is the luminosity (W) each packet would carry in an
	// unbiased launch.
	PacketLuminosity float64
}

// PacketSink receives every launched packet. w identifies the worker
// goroutine; the packet is reused after the call returns.
type PacketSink func(w int, pp *PhotonPacket)

// RunSegment prepares src for the segment and launches all its history indices
// over parallel workers, each with its own Emitter and random stream. It
// returns after every packet has been passed to sink.
func RunSegment(src *ImportedSource, key SimulationKey, cfg SegmentConfig, sink PacketSink) error {
	if err := src.PrepareForLaunch(cfg.Bias, cfg.First, cfg.Num); err != nil {
		return err
	}
	parallelChunks(cfg.Num, cfg.Workers, func(w, start, end int) {
		e := src.NewEmitter()
		rnd := NewHistoryRandom(key)
		var pp PhotonPacket
		for i := start; i < end; i++ {
			h := cfg.First + i
			rnd.Reset(h)
			e.Launch(&pp, h, cfg.PacketLuminosity, rnd)
			sink(w, &pp)
		}
	})
	return nil
}

// RunResult is the outcome of Run.
type RunResult struct {
	Packets          int
	Segments         int
	PacketLuminosity float64
	Tally            *trace.Tally // nil when tracing is disabled
	Elapsed          time.Duration
}

// Run launches cfg.Packets packets from src in cfg.Segments sequential
// segments. Every unbiased packet carries the source luminosity divided by the
// total packet count. Cancellation is checked between segments.
func Run(ctx context.Context, src *ImportedSource, key SimulationKey, cfg LaunchConfig, tc trace.TraceConfig) (*RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	res := &RunResult{
		Packets:  cfg.Packets,
		Segments: cfg.segments(),
		Tally:    trace.NewTally(tc, src.NumEntities()),
	}
	if cfg.Packets > 0 {
		res.PacketLuminosity = src.Luminosity() / float64(cfg.Packets)
	}

	per, rem := cfg.Packets/res.Segments, cfg.Packets%res.Segments
	first := 0
	for seg := 0; seg < res.Segments; seg++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("segment %d: %w", seg, err)
		}
		num := per
		if seg < rem {
			num++
		}
		workers := resolveWorkers(cfg.Workers, num)
		tallies := make([]*trace.Tally, workers)
		for w := range tallies {
			tallies[w] = trace.NewTally(tc, src.NumEntities())
		}

		segCfg := SegmentConfig{First: first, Num: num, Bias: cfg.Bias, Workers: workers, PacketLuminosity: res.PacketLuminosity}
		err := RunSegment(src, key, segCfg, func(w int, pp *PhotonPacket) {
			tallies[w].Record(trace.PacketRecord{
				HistoryIndex: pp.HistoryIndex,
				Entity:       pp.Entity,
				Wavelength:   pp.Wavelength,
				Luminosity:   pp.Luminosity,
			})
		})
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", seg, err)
		}
		for _, t := range tallies {
			res.Tally.Merge(t)
		}
		logrus.Debugf("Segment %d: launched history indices [%d, %d) on %d workers", seg, first, first+num, workers)
		first += num
	}
	res.Elapsed = time.Since(start)
	return res, nil
}
