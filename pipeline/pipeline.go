package pipeline

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/anpr-ai/go-anpr/alerts"
	"github.com/anpr-ai/go-anpr/colors"
	"github.com/anpr-ai/go-anpr/images"
	"github.com/anpr-ai/go-anpr/inference"
	"github.com/anpr-ai/go-anpr/masks"
	"github.com/anpr-ai/go-anpr/models/postprocess"
	"github.com/anpr-ai/go-anpr/plates"
	"github.com/anpr-ai/go-anpr/tracking"
	"github.com/anpr-ai/go-anpr/watchlist"
)

// COCO class ids for the vehicle classes the pipeline accepts.
var vehicleClasses = map[int]string{
	2: "car",
	3: "motorcycle",
	5: "bus",
	7: "truck",
}

// nmsThreshold is the default overlap above which duplicates are suppressed.
const nmsThreshold = 0.4

// quiesceTimeout bounds how long reinitialization waits for an in-flight run.
const quiesceTimeout = 2 * time.Second

// OCREngine abstracts the plate text recognizer. Implementations crop the
// plate region themselves from the frame and box.
type OCREngine interface {
	RecognizeText(ctx context.Context, img image.Image, box images.Rect) (string, float32, error)
}

// Config wires the pipeline's collaborators.
type Config struct {
	// Engine is the vehicle segmentation model.
	Engine inference.Engine
	// VehicleClassCount is the class count of Engine's detection head.
	VehicleClassCount int
	// PlateEngine detects plates; nil disables plate detection.
	PlateEngine inference.Engine
	// PlateClassCount is the class count of PlateEngine's head.
	PlateClassCount int
	// OCR recognizes plate text; nil leaves plates unread.
	OCR OCREngine
	// Store is the watchlist source.
	Store watchlist.Store
	// Player receives alert playback calls.
	Player alerts.Player
	// Templates are the plate formats to normalize against; nil uses the
	// built-in defaults.
	Templates []plates.Template
	Settings  Settings
	Log       zerolog.Logger
}

// FrameResult is the structured outcome of processing one frame. Failed
// frames yield an empty result, never a panic across this boundary.
type FrameResult struct {
	Vehicles    []tracking.VehicleObservation
	Plates      []tracking.PlateObservation
	Match       bool
	DecodeStats postprocess.DecodeStats
}

// Pipeline drives frames through detection, attribute extraction, watchlist
// matching and alerting. At most one frame is in flight at a time; newer
// frames replace any still-pending one.
type Pipeline struct {
	mu          sync.Mutex
	engine      inference.Engine
	plateEngine inference.Engine
	settings    Settings
	extractor   *colors.Extractor
	running     bool
	cancelRun   context.CancelFunc
	runDone     chan struct{}
	baseCtx     context.Context

	cfg         Config
	slot        frameSlot
	lifecycle   *tracking.Lifecycle
	normalizer  *plates.Normalizer
	coordinator *alerts.Coordinator
	perf        *PerfCounters
	log         zerolog.Logger

	stateMu    sync.RWMutex
	lastPlate  string
	matchState bool
}

// New creates a pipeline from the given configuration.
func New(cfg Config) *Pipeline {
	templates := cfg.Templates
	if templates == nil {
		templates = plates.DefaultTemplates()
	}
	p := &Pipeline{
		engine:      cfg.Engine,
		plateEngine: cfg.PlateEngine,
		settings:    cfg.Settings,
		cfg:         cfg,
		baseCtx:     context.Background(),
		lifecycle:   tracking.NewLifecycle(),
		normalizer:  plates.NewNormalizer(templates),
		coordinator: alerts.NewCoordinator(cfg.Player, cfg.Log),
		perf:        &PerfCounters{},
		log:         cfg.Log,
	}
	p.extractor = colors.NewExtractor(colorConfig(cfg.Settings))
	return p
}

func colorConfig(s Settings) colors.Config {
	return colors.Config{
		EnableSecondaryColor:          s.EnableSecondaryColor,
		EnableGrayFiltering:           s.EnableGrayFiltering,
		GrayExclusionThresholdPercent: s.GrayExclusionThresholdPercent,
	}
}

// Start runs the background expiry sweep until ctx is cancelled. Frame
// processing is driven by Submit and does not require Start, but stale
// observations are then only purged opportunistically.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	p.baseCtx = ctx
	p.mu.Unlock()
	go p.lifecycle.Run(ctx)
}

// Submit queues a frame for processing. If a run is already in progress the
// frame replaces any previously queued frame; only the newest unprocessed
// frame survives.
func (p *Pipeline) Submit(f Frame) {
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	if dropped := p.slot.offer(f); dropped {
		p.log.Debug().Msg("superseded pending frame")
	}
	p.maybeStart()
}

func (p *Pipeline) maybeStart() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	ctx, cancel := context.WithCancel(p.baseCtx)
	p.cancelRun = cancel
	done := make(chan struct{})
	p.runDone = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		p.runLoop(ctx)
		cancel()

		p.mu.Lock()
		p.running = false
		p.mu.Unlock()

		// A frame may have arrived between the loop's final empty take and
		// clearing the running flag. It must stay in the slot: the restarted
		// loop is what consumes it.
		if p.slot.peek() {
			p.maybeStart()
		}
	}()
}

// runLoop drains the slot one frame at a time. After each run completes, a
// newer queued frame is started immediately.
func (p *Pipeline) runLoop(ctx context.Context) {
	for {
		frame, ok := p.slot.take()
		if !ok {
			return
		}
		result := p.process(ctx, frame)
		if ctx.Err() != nil {
			// Cancelled mid-run: partial results are never published.
			return
		}
		p.publish(ctx, frame, result)
	}
}

// Process runs one frame synchronously through the full pipeline and
// publishes its results. Every failure mode yields an empty result.
func (p *Pipeline) Process(ctx context.Context, f Frame) FrameResult {
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	result := p.process(ctx, f)
	if ctx.Err() == nil {
		p.publish(ctx, f, result)
	}
	return result
}

// process turns one frame into observations. It never panics across this
// boundary; a crashed stage is logged and returns the empty result.
func (p *Pipeline) process(ctx context.Context, f Frame) (result FrameResult) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("frame processing panicked, returning empty result")
			result = FrameResult{}
		}
	}()

	p.mu.Lock()
	engine := p.engine
	plateEngine := p.plateEngine
	settings := p.settings
	extractor := p.extractor
	p.mu.Unlock()

	if engine == nil || f.Image == nil {
		return FrameResult{}
	}

	bounds := f.Image.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	preStart := time.Now()
	p.lifecycle.Sweep(f.Timestamp)
	preDur := time.Since(preStart)

	inferStart := time.Now()
	outputs, err := engine.Infer(ctx, f.Image)
	inferDur := time.Since(inferStart)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn().Err(err).Str("engine", engine.Name()).Msg("inference failed, empty frame result")
		}
		return FrameResult{}
	}
	if len(outputs) == 0 {
		return FrameResult{}
	}

	postStart := time.Now()

	decodeCfg := postprocess.DecodeConfig{
		ImageWidth:           width,
		ImageHeight:          height,
		NumClasses:           p.cfg.VehicleClassCount,
		WithMaskCoefficients: len(outputs) > 1,
		ConfidenceThreshold:  settings.VehicleConfidence(),
		AcceptedClasses:      acceptedVehicleClasses(p.cfg.VehicleClassCount),
	}
	candidates, stats := postprocess.DecodeDetections(outputs[0].Data, outputs[0].Shape, decodeCfg, p.log)
	detections := postprocess.ApplyGreedyNMS(candidates, &postprocess.NMSConfig{IoUThreshold: nmsThreshold})

	reconstructor := p.buildReconstructor(outputs, width, height)

	vehicles := p.extractVehicles(f, detections, reconstructor, extractor)

	var plateObs []tracking.PlateObservation
	if settings.EnableOcr && settings.ActiveDetectionMode.NeedsPlate() && plateEngine != nil {
		plateObs = p.detectPlates(ctx, f, plateEngine, settings)
	}

	result = FrameResult{Vehicles: vehicles, Plates: plateObs, DecodeStats: stats}

	p.perf.ObserveFrame(preDur, inferDur, time.Since(postStart))
	return result
}

// acceptedVehicleClasses restricts decoding to the vehicle classes when the
// model is a full COCO export. Smaller class counts are custom vehicle-only
// models and accept everything.
func acceptedVehicleClasses(numClasses int) map[int]bool {
	if numClasses < 8 {
		return nil
	}
	accepted := make(map[int]bool, len(vehicleClasses))
	for id := range vehicleClasses {
		accepted[id] = true
	}
	return accepted
}

// buildReconstructor wraps the model's prototype output, when present, for
// mask reconstruction. Proto tensors arrive channel-first [1, C, H, W] and
// are transposed to H*W*C for per-pixel dot products.
func (p *Pipeline) buildReconstructor(outputs []inference.Output, width, height int) *masks.Reconstructor {
	if len(outputs) < 2 || len(outputs[1].Shape) < 4 {
		return masks.NewReconstructor(nil, width, height)
	}
	shape := outputs[1].Shape
	c := int(shape[len(shape)-3])
	h := int(shape[len(shape)-2])
	w := int(shape[len(shape)-1])
	if len(outputs[1].Data) < c*h*w {
		return masks.NewReconstructor(nil, width, height)
	}

	hwc := make([]float32, h*w*c)
	for ch := 0; ch < c; ch++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				hwc[(y*w+x)*c+ch] = outputs[1].Data[ch*h*w+y*w+x]
			}
		}
	}
	protos, err := masks.NewPrototypes(hwc, h, w, c)
	if err != nil {
		p.log.Warn().Err(err).Msg("prototype tensor rejected, masks disabled for frame")
		return masks.NewReconstructor(nil, width, height)
	}
	return masks.NewReconstructor(protos, width, height)
}

// extractVehicles fans out per-detection mask and color work and joins
// before returning. A failure in one detection's extraction leaves that
// vehicle without color but never drops the rest of the frame.
func (p *Pipeline) extractVehicles(
	f Frame,
	detections []postprocess.Result,
	reconstructor *masks.Reconstructor,
	extractor *colors.Extractor,
) []tracking.VehicleObservation {
	vehicles := make([]tracking.VehicleObservation, len(detections))
	var wg sync.WaitGroup
	for i, det := range detections {
		wg.Add(1)
		go func(i int, det postprocess.Result) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					p.log.Warn().Interface("panic", r).Msg("color extraction failed for detection")
				}
			}()

			label, ok := vehicleClasses[det.Class]
			if !ok {
				label = "vehicle"
			}
			obs := tracking.VehicleObservation{
				ID:         tracking.DeriveID(label, det.Box, f.Timestamp),
				Box:        det.Box,
				Confidence: det.Score,
				Class:      label,
				DetectedAt: f.Timestamp,
			}

			_, crop := reconstructor.Reconstruct(det.Box, det.Coefficients)
			if crop != nil {
				obs.PrimaryColor, obs.SecondaryColor = extractor.Extract(f.Image, det.Box, crop)
			}
			vehicles[i] = obs
		}(i, det)
	}
	wg.Wait()
	return vehicles
}

// detectPlates runs the plate detector and fans out OCR per plate box.
func (p *Pipeline) detectPlates(
	ctx context.Context,
	f Frame,
	engine inference.Engine,
	settings Settings,
) []tracking.PlateObservation {
	bounds := f.Image.Bounds()
	outputs, err := engine.Infer(ctx, f.Image)
	if err != nil || len(outputs) == 0 {
		if err != nil && ctx.Err() == nil {
			p.log.Warn().Err(err).Msg("plate detection failed")
		}
		return nil
	}

	decodeCfg := postprocess.DecodeConfig{
		ImageWidth:          bounds.Dx(),
		ImageHeight:         bounds.Dy(),
		NumClasses:          p.cfg.PlateClassCount,
		ConfidenceThreshold: settings.PlateConfidence(),
	}
	candidates, _ := postprocess.DecodeDetections(outputs[0].Data, outputs[0].Shape, decodeCfg, p.log)
	detections := postprocess.ApplyGreedyNMS(candidates, &postprocess.NMSConfig{IoUThreshold: nmsThreshold})

	plateObs := make([]tracking.PlateObservation, len(detections))
	var wg sync.WaitGroup
	for i, det := range detections {
		wg.Add(1)
		go func(i int, det postprocess.Result) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					p.log.Warn().Interface("panic", r).Msg("plate OCR failed for detection")
				}
			}()

			obs := tracking.PlateObservation{
				Box:        det.Box,
				Confidence: det.Score,
				DetectedAt: f.Timestamp,
			}
			if p.cfg.OCR != nil {
				raw, _, err := p.cfg.OCR.RecognizeText(ctx, f.Image, det.Box)
				if err == nil && raw != "" {
					obs.RawText = raw
					normalized := p.normalizer.Normalize(raw)
					obs.Text = normalized.Text
					obs.Valid = normalized.Valid
					if !normalized.Valid {
						// Digit-only recognizers bypass the template path.
						if formatted, ok := plates.ValidateAndFormatPlate(raw); ok {
							obs.Text = formatted
							obs.Valid = true
						}
					}
				} else if err != nil && ctx.Err() == nil {
					p.log.Debug().Err(err).Msg("plate text recognition failed")
				}
			}
			plateObs[i] = obs
		}(i, det)
	}
	wg.Wait()
	return plateObs
}

// publish hands a frame's results to the lifecycle, evaluates the watchlist
// and drives the alert coordinator.
func (p *Pipeline) publish(ctx context.Context, f Frame, result FrameResult) {
	p.lifecycle.Publish(result.Vehicles, result.Plates, f.Timestamp)

	matched := p.evaluateMatch(ctx)
	p.coordinator.Update(matched)

	p.stateMu.Lock()
	p.matchState = matched
	var newest time.Time
	for _, plate := range p.lifecycle.Plates() {
		if plate.Text != "" && (newest.IsZero() || plate.DetectedAt.After(newest)) {
			p.lastPlate = plate.Text
			newest = plate.DetectedAt
		}
	}
	p.stateMu.Unlock()
}

// evaluateMatch decides whether the live observations match any watchlist
// entry under the active mode. An empty or unreachable watchlist never
// matches.
func (p *Pipeline) evaluateMatch(ctx context.Context) bool {
	if p.cfg.Store == nil {
		return false
	}
	entries, err := p.cfg.Store.GetAllEntries(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn().Err(err).Msg("watchlist unavailable, treating as no match")
		}
		return false
	}
	if len(entries) == 0 {
		return false
	}

	p.mu.Lock()
	mode := p.settings.ActiveDetectionMode
	p.mu.Unlock()

	vehicles := p.lifecycle.Vehicles()
	byID := make(map[string]tracking.VehicleObservation, len(vehicles))
	for _, v := range vehicles {
		byID[v.ID] = v
	}

	if mode.NeedsPlate() {
		for _, plate := range p.lifecycle.Plates() {
			detected := watchlist.Detected{PlateText: plate.Text}
			if owner, ok := byID[plate.VehicleID]; ok {
				detected.Color = owner.PrimaryColor
				detected.VehicleType = owner.Class
			}
			if watchlist.Match(detected, mode, entries) {
				return true
			}
		}
		return false
	}

	for _, v := range vehicles {
		detected := watchlist.Detected{Color: v.PrimaryColor, VehicleType: v.Class}
		if watchlist.Match(detected, mode, entries) {
			return true
		}
		if v.SecondaryColor != colors.None {
			detected.Color = v.SecondaryColor
			if watchlist.Match(detected, mode, entries) {
				return true
			}
		}
	}
	return false
}

// Reinitialize cancels any in-flight frame, waits briefly for it to quiesce,
// then applies new settings and swaps the engines. Partial results from a
// cancelled run are never published. The previous engines are closed when
// replaced.
func (p *Pipeline) Reinitialize(settings Settings, engine, plateEngine inference.Engine) {
	p.mu.Lock()
	cancel := p.cancelRun
	done := p.runDone
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(quiesceTimeout):
			p.log.Warn().Msg("in-flight frame did not quiesce before reinitialization")
		}
	}
	p.slot.clear()

	p.mu.Lock()
	oldEngine := p.engine
	oldPlate := p.plateEngine
	if engine != nil {
		p.engine = engine
	}
	if plateEngine != nil {
		p.plateEngine = plateEngine
	}
	p.settings = settings
	p.extractor = colors.NewExtractor(colorConfig(settings))
	p.mu.Unlock()

	if engine != nil && oldEngine != nil && oldEngine != engine {
		_ = oldEngine.Close()
	}
	if plateEngine != nil && oldPlate != nil && oldPlate != plateEngine {
		_ = oldPlate.Close()
	}
}

// Vehicles returns the live vehicle observations.
func (p *Pipeline) Vehicles() []tracking.VehicleObservation { return p.lifecycle.Vehicles() }

// Plates returns the live plate observations.
func (p *Pipeline) Plates() []tracking.PlateObservation { return p.lifecycle.Plates() }

// LatestPlate returns the most recently recognized formatted plate text.
func (p *Pipeline) LatestPlate() string {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.lastPlate
}

// MatchState reports the current watchlist match decision.
func (p *Pipeline) MatchState() bool {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.matchState
}

// Perf returns the rolling stage timing averages.
func (p *Pipeline) Perf() PerfSnapshot { return p.perf.Snapshot() }
