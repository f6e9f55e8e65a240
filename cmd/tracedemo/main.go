package main

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tracekit/trackevent"
	"github.com/tracekit/trackevent/category"
	"github.com/tracekit/trackevent/export"
	"github.com/tracekit/trackevent/internal/config"
	"github.com/tracekit/trackevent/internal/logging"
	"github.com/tracekit/trackevent/internal/monitoring"
	"github.com/tracekit/trackevent/sequence"
	"github.com/tracekit/trackevent/session"
	"github.com/tracekit/trackevent/wire"
)

const (
	catApp = iota
	catRender
	catInput
	catIO
)

func main() {
	cfg := config.LoadOrDefault()

	output := flag.String("output", cfg.Output.Path, "Trace output file")
	filter := flag.String("filter", cfg.Output.FilterConfig, "YAML category filter config")
	compress := flag.Bool("compress", cfg.Output.Compress, "Gzip the trace output")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	logCfg := logging.Config{Level: cfg.Logging.Level, Development: *dev, OutputPaths: []string{"stdout"}}
	logger, err := logging.New(logCfg)
	if err != nil {
		logger = logging.NewDefault()
	}
	defer logger.Sync()

	registry := category.NewRegistry(
		category.Category{Name: "app", Description: "Application lifecycle"},
		category.Category{Name: "render", Description: "Frame rendering"},
		category.Category{Name: "input", Description: "Input handling"},
		category.Category{Name: "io", Description: "Blocking file IO", Tags: []string{"slow"}},
		category.Category{Name: "render,input", Description: "Interactive work", Group: true},
	)

	coord := session.NewCoordinator(logger)
	coord.AddRegistry(registry)

	metrics := monitoring.NewMetrics()
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Warn("metrics registration failed", zap.Error(err))
	}
	coord.SetMetrics(metrics)

	if err := coord.Initialize("track_event", func(name string, descriptor []byte) bool {
		logger.Debug("data source registered",
			zap.String("name", name), zap.Int("descriptor_bytes", len(descriptor)))
		return true
	}); err != nil {
		logger.Fatal("registry validation failed", zap.Error(err))
	}

	traceCfg := category.DefaultConfig()
	if *filter != "" {
		traceCfg, err = category.LoadConfig(*filter)
		if err != nil {
			logger.Fatal("bad filter config", zap.Error(err))
		}
	}

	sessionID := coord.EnableTracing(traceCfg, 0)
	coord.OnStart(session.StartArgs{Instance: 0})
	logger.Info("tracing session started", zap.String("session_id", sessionID))

	buf := wire.NewBufferWriter()
	st := sequence.NewState(1, int32(os.Getpid()), 1, "tracedemo", "main")
	if cfg.Clock.ThreadTime {
		start := time.Now()
		st.EnableThreadTime(cfg.Clock.ThreadTimeIntervalNs, func() uint64 {
			return uint64(time.Since(start))
		})
	}
	st.UnitMultiplier = cfg.Clock.UnitMultiplier

	emitter := trackevent.NewEmitter(buf, st, registry)
	emitter.SetCoordinator(coord, 0)
	emitter.SetSessionConfig(0, traceCfg)
	emitter.SetMetrics(metrics)

	record(emitter, st)

	coord.OnStop(session.StopArgs{Instance: 0})
	coord.DisableTracing(0)

	if err := writeTrace(buf, *output, *compress); err != nil {
		logger.Fatal("trace write failed", zap.Error(err))
	}
	jsonPath := *output + ".json"
	if err := writeChrome(buf, jsonPath); err != nil {
		logger.Fatal("chrome export failed", zap.Error(err))
	}
	logger.Info("trace recorded",
		zap.String("trace", *output),
		zap.String("chrome_json", jsonPath),
		zap.Int("packets", buf.PacketCount()),
		zap.Uint64("sessions", coord.SessionCount()),
	)
}

// record emits a small synthetic workload.
func record(emitter *trackevent.Emitter, st *sequence.State) {
	ev := emitter.BeginSlice(catApp, "startup")
	ev.AddDebugAnnotation("args", os.Args)
	ev.AddDebugAnnotation("pid", os.Getpid())
	ev.Finish()

	frameTimes := sequence.CounterTrack{
		Uuid:   st.ProcessTrack.Uuid + 1,
		Parent: st.ProcessTrack.Uuid,
		Name:   "frame_time_us",
	}

	for frame := 0; frame < 5; frame++ {
		fe := emitter.BeginSlice(catRender, "frame")
		fe.AddDebugAnnotation("frame", frame)
		fe.AddDebugAnnotation("viewport", map[string]any{"w": 1920, "h": 1080})
		fe.Finish()

		in := emitter.Instant(catInput, "pointer_move")
		in.AddDebugAnnotation("position", []int{12 * frame, 34})
		in.Finish()

		emitter.Counter(catRender, frameTimes, int64(16000+frame*250))
		emitter.EndSlice(catRender)
	}

	// Simulate a ring buffer wraparound mid-recording: the next event
	// re-emits defaults, clock snapshot, and track descriptors.
	emitter.InvalidateIncrementalState()

	slow := emitter.Instant(catIO, "flush")
	slow.AddDebugAnnotation("bytes", uint64(1<<20))
	slow.Finish()

	emitter.EndSlice(catApp)
}

func writeTrace(buf *wire.BufferWriter, path string, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var out io.Writer = f
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(f)
		out = gz
	}
	if _, err := buf.WriteTo(out); err != nil {
		return err
	}
	if gz != nil {
		return gz.Close()
	}
	return nil
}

func writeChrome(buf *wire.BufferWriter, path string) error {
	data, err := export.Packets(buf.Packets())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
