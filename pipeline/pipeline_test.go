package pipeline

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anpr-ai/go-anpr/images"
	"github.com/anpr-ai/go-anpr/inference"
	"github.com/anpr-ai/go-anpr/tracking"
	"github.com/anpr-ai/go-anpr/watchlist"
)

// fakeEngine emits one fixed detection tensor per Infer call.
type fakeEngine struct {
	outputs []inference.Output
	err     error

	mu     sync.Mutex
	infers int
	closed bool
}

func (e *fakeEngine) Infer(ctx context.Context, img image.Image) ([]inference.Output, error) {
	e.mu.Lock()
	e.infers++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return e.outputs, nil
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}

type fakeOCR struct{ text string }

func (o *fakeOCR) RecognizeText(ctx context.Context, img image.Image, box images.Rect) (string, float32, error) {
	if o.text == "" {
		return "", 0, errors.New("no text")
	}
	return o.text, 0.9, nil
}

type fakeStore struct{ entries []watchlist.Entry }

func (s *fakeStore) GetAllEntries(ctx context.Context) ([]watchlist.Entry, error) {
	return s.entries, nil
}

type fakePlayer struct {
	mu    sync.Mutex
	plays int
}

func (p *fakePlayer) PlayAlert() {
	p.mu.Lock()
	p.plays++
	p.mu.Unlock()
}

func (p *fakePlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

// detectionTensor builds a channel-major [1, values, entries] output with a
// single confident detection and zero-score padding entries.
func detectionTensor(numClasses, class int, score float32) inference.Output {
	values := 4 + numClasses
	const entries = 64
	data := make([]float32, values*entries)

	entry := make([]float32, values)
	entry[0], entry[1], entry[2], entry[3] = 0.5, 0.5, 0.5, 0.5
	entry[4+class] = score
	for v, val := range entry {
		data[v*entries] = val
	}
	return inference.Output{Data: data, Shape: []int64{1, int64(values), entries}}
}

func testFrame() Frame {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 30, G: 40, B: 160, A: 255})
		}
	}
	return Frame{Image: img, Timestamp: time.Now()}
}

func testConfig(store watchlist.Store, player *fakePlayer) Config {
	return Config{
		Engine:            &fakeEngine{outputs: []inference.Output{detectionTensor(4, 1, 0.9)}},
		VehicleClassCount: 4,
		PlateEngine:       &fakeEngine{outputs: []inference.Output{detectionTensor(1, 0, 0.8)}},
		PlateClassCount:   1,
		OCR:               &fakeOCR{text: "12-345-67"},
		Store:             store,
		Player:            player,
		Settings:          DefaultSettings(),
		Log:               zerolog.Nop(),
	}
}

func TestPipelineProcessEndToEnd(t *testing.T) {
	player := &fakePlayer{}
	store := &fakeStore{entries: []watchlist.Entry{{ID: 1, Plate: "12-345-67"}}}
	p := New(testConfig(store, player))

	result := p.Process(context.Background(), testFrame())

	require.Len(t, result.Vehicles, 1)
	require.Len(t, result.Plates, 1)
	assert.Equal(t, "1234567", result.Plates[0].Text, "OCR text is normalized against the templates")
	assert.True(t, result.Plates[0].Valid)
	assert.Equal(t, result.Vehicles[0].ID, result.Plates[0].VehicleID, "the plate is owned by the overlapping vehicle")

	assert.True(t, p.MatchState())
	assert.Equal(t, "1234567", p.LatestPlate())
	assert.Eventually(t, func() bool { return player.count() == 1 },
		time.Second, 10*time.Millisecond, "exactly one alert plays on the match edge")
}

func TestPipelineNoMatchOnEmptyWatchlist(t *testing.T) {
	player := &fakePlayer{}
	p := New(testConfig(&fakeStore{}, player))

	p.Process(context.Background(), testFrame())

	assert.False(t, p.MatchState(), "an empty watchlist never matches")
	assert.Equal(t, 0, player.count())
}

func TestPipelineInferenceErrorYieldsEmptyResult(t *testing.T) {
	cfg := testConfig(&fakeStore{}, &fakePlayer{})
	cfg.Engine = &fakeEngine{err: errors.New("session lost")}
	p := New(cfg)

	result := p.Process(context.Background(), testFrame())
	assert.Empty(t, result.Vehicles)
	assert.Empty(t, result.Plates)
}

func TestPipelineSkipsOCRInColorMode(t *testing.T) {
	cfg := testConfig(&fakeStore{}, &fakePlayer{})
	cfg.Settings.ActiveDetectionMode = watchlist.ModeColor
	plateEngine := cfg.PlateEngine.(*fakeEngine)
	p := New(cfg)

	p.Process(context.Background(), testFrame())
	assert.Zero(t, plateEngine.infers, "color-only modes never run plate detection")
}

func TestPipelineSubmitProcessesAsync(t *testing.T) {
	store := &fakeStore{entries: []watchlist.Entry{{ID: 1, Plate: "1234567"}}}
	p := New(testConfig(store, &fakePlayer{}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	p.Submit(testFrame())

	assert.Eventually(t, func() bool { return p.MatchState() },
		2*time.Second, 10*time.Millisecond, "a submitted frame is processed in the background")
	assert.Len(t, p.Vehicles(), 1)
}

func TestPipelineReinitializeSwapsAndClosesEngine(t *testing.T) {
	cfg := testConfig(&fakeStore{}, &fakePlayer{})
	oldEngine := cfg.Engine.(*fakeEngine)
	p := New(cfg)
	p.Process(context.Background(), testFrame())

	replacement := &fakeEngine{err: errors.New("not loaded")}
	newSettings := DefaultSettings()
	newSettings.MinConfidence = 0.95
	p.Reinitialize(newSettings, replacement, nil)

	assert.True(t, oldEngine.closed, "the replaced engine is closed")

	result := p.Process(context.Background(), testFrame())
	assert.Empty(t, result.Vehicles, "the new engine is in effect immediately")
}

// gatedEngine blocks each Infer call until a token arrives, so tests can
// pin the run goroutine at a known point.
type gatedEngine struct {
	started chan struct{}
	gate    chan struct{}
	outputs []inference.Output

	mu     sync.Mutex
	infers int
}

func (e *gatedEngine) Infer(ctx context.Context, img image.Image) ([]inference.Output, error) {
	e.started <- struct{}{}
	<-e.gate
	e.mu.Lock()
	e.infers++
	e.mu.Unlock()
	return e.outputs, nil
}

func (e *gatedEngine) Name() string { return "gated" }
func (e *gatedEngine) Close() error { return nil }

func (e *gatedEngine) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.infers
}

func TestPipelineFrameQueuedDuringWindDownIsProcessed(t *testing.T) {
	engine := &gatedEngine{
		started: make(chan struct{}, 4),
		gate:    make(chan struct{}, 4),
		outputs: []inference.Output{detectionTensor(4, 1, 0.9)},
	}
	p := New(Config{
		Engine:            engine,
		VehicleClassCount: 4,
		Settings:          DefaultSettings(),
		Log:               zerolog.Nop(),
	})

	// First frame enters inference and blocks there.
	p.Submit(testFrame())
	<-engine.started

	// Hold the pipeline mutex so the run goroutine, once its loop drains,
	// parks before it can clear the running flag.
	p.mu.Lock()
	engine.gate <- struct{}{}
	require.Eventually(t, func() bool { return engine.count() == 1 },
		time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	// A frame arrives in this window. Submit sees the run still marked
	// running, so only the wind-down path can start it.
	go p.Submit(testFrame())
	require.Eventually(t, func() bool { return p.slot.peek() },
		time.Second, time.Millisecond, "the frame must sit in the slot")

	engine.gate <- struct{}{}
	p.mu.Unlock()

	assert.Eventually(t, func() bool { return engine.count() == 2 },
		2*time.Second, time.Millisecond,
		"a frame queued while the previous run winds down must still be processed")
}

func TestLatestPlatePrefersNewestObservation(t *testing.T) {
	p := New(testConfig(&fakeStore{}, &fakePlayer{}))
	now := time.Now()
	f := testFrame()
	f.Timestamp = now

	result := FrameResult{Plates: []tracking.PlateObservation{
		{Text: "1111111", Valid: true, DetectedAt: now.Add(-100 * time.Millisecond)},
		{Text: "2222222", Valid: true, DetectedAt: now},
	}}
	p.publish(context.Background(), f, result)

	assert.Equal(t, "2222222", p.LatestPlate(), "recency beats detection order")
}

func TestPipelineNilImage(t *testing.T) {
	p := New(testConfig(&fakeStore{}, &fakePlayer{}))
	result := p.Process(context.Background(), Frame{Timestamp: time.Now()})
	assert.Empty(t, result.Vehicles)
}
