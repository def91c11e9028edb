package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gocv.io/x/gocv"

	"github.com/anpr-ai/go-anpr/alerts"
	"github.com/anpr-ai/go-anpr/inference"
	"github.com/anpr-ai/go-anpr/pipeline"
	"github.com/anpr-ai/go-anpr/watchlist"
)

const (
	// defaultVehicleClasses matches a COCO-trained segmentation export.
	defaultVehicleClasses = 80
	// defaultPlateClasses matches a single-class plate detector.
	defaultPlateClasses = 1
	// simulatedSeed fixes the fallback network's weights.
	simulatedSeed = 42
)

func main() {
	var (
		configPath = flag.String("config", "anpr.yaml", "configuration file path")
		deviceID   = flag.Int("device", 0, "video capture device id")
		videoPath  = flag.String("video", "", "video file to process instead of a capture device")
		modelPath  = flag.String("model", "", "vehicle segmentation ONNX model path")
		plateModel = flag.String("plate-model", "", "plate detector ONNX model path")
		ortLib     = flag.String("ort-lib", "libonnxruntime.so", "ONNX Runtime shared library path")
		dbPath     = flag.String("watchlist", "watchlist.db", "watchlist sqlite database path")
	)
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	v := viper.New()
	v.SetConfigFile(*configPath)
	if err := v.ReadInConfig(); err != nil {
		log.Info().Err(err).Msg("no configuration file, using defaults")
	}
	settings := pipeline.LoadSettings(v)

	store, err := watchlist.OpenSQLite(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("opening watchlist store")
	}
	defer store.Close()

	engine := openEngine(log, *modelPath, *ortLib, settings, []int64{1, 116, 8400}, []int64{1, 32, 160, 160})
	defer engine.Close()

	var plateEngine inference.Engine
	if *plateModel != "" {
		plateEngine = openEngine(log, *plateModel, *ortLib, settings, []int64{1, 5, 8400}, nil)
		defer plateEngine.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(pipeline.Config{
		Engine:            engine,
		VehicleClassCount: defaultVehicleClasses,
		PlateEngine:       plateEngine,
		PlateClassCount:   defaultPlateClasses,
		Store:             store,
		Player:            &alerts.CommandPlayer{Command: "aplay", ClipPath: v.GetString("alert.clip"), Log: log},
		Settings:          settings,
		Log:               log,
	})
	p.Start(ctx)

	if err := inference.WarmUp(ctx, engine, 2); err != nil {
		log.Warn().Err(err).Msg("engine warm-up failed")
	}

	if err := captureLoop(ctx, log, p, *deviceID, *videoPath); err != nil {
		log.Fatal().Err(err).Msg("capture loop ended")
	}
}

// openEngine loads the ONNX model, falling back to the simulated network
// when the model or runtime is unavailable.
func openEngine(log zerolog.Logger, modelPath, ortLib string, settings pipeline.Settings, detShape, protoShape []int64) inference.Engine {
	if modelPath != "" {
		engine, err := inference.NewONNXEngine(inference.ONNXConfig{
			ModelPath:       modelPath,
			SharedLibPath:   ortLib,
			InputSide:       640,
			DetectionShape:  detShape,
			PrototypeShape:  protoShape,
			UseAcceleration: settings.EnableGpuAcceleration,
		})
		if err == nil {
			log.Info().Str("model", modelPath).Msg("loaded ONNX model")
			return engine
		}
		log.Warn().Err(err).Str("model", modelPath).Msg("ONNX model unavailable, using simulated network")
	}
	engine, err := inference.NewSimulatedEngine(defaultVehicleClasses, simulatedSeed)
	if err != nil {
		log.Fatal().Err(err).Msg("building simulated network")
	}
	return engine
}

// captureLoop reads frames from the camera or video file and feeds the
// pipeline, logging live state once a second.
func captureLoop(ctx context.Context, log zerolog.Logger, p *pipeline.Pipeline, deviceID int, videoPath string) error {
	var capture *gocv.VideoCapture
	var err error
	if videoPath != "" {
		capture, err = gocv.VideoCaptureFile(videoPath)
	} else {
		capture, err = gocv.OpenVideoCapture(deviceID)
	}
	if err != nil {
		return err
	}
	defer capture.Close()

	mat := gocv.NewMat()
	defer mat.Close()

	report := time.NewTicker(time.Second)
	defer report.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-report.C:
			perf := p.Perf()
			log.Info().
				Int("vehicles", len(p.Vehicles())).
				Int("plates", len(p.Plates())).
				Str("latest_plate", p.LatestPlate()).
				Bool("match", p.MatchState()).
				Dur("infer_avg", perf.InferenceAvg).
				Dur("post_avg", perf.PostProcessAvg).
				Msg("pipeline state")
		default:
		}

		if ok := capture.Read(&mat); !ok {
			return nil
		}
		if mat.Empty() {
			continue
		}

		frame, err := mat.ToImage()
		if err != nil {
			log.Warn().Err(err).Msg("frame conversion failed")
			continue
		}
		p.Submit(pipeline.Frame{Image: frame, Timestamp: time.Now()})
	}
}
