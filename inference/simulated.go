package inference

import (
	"context"
	"image"
	"math/rand"
	"sync"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Simulated engine geometry. A 64x64 input through two stride-2 convolutions
// yields a 16x16 anchor grid.
const (
	simInputSide  = 64
	simGridSide   = 16
	simProtoSide  = 32
	simHiddenCh   = 8
	simCoeffCount = 32
)

// SimulatedEngine is the fallback used when no real model can be loaded: a
// small random-weight convolution stack evaluated with gorgonia, exposed
// behind the same Engine interface as the ONNX engine. Weights come from a
// fixed seed, so the same frame always yields the same output. Class scores
// are biased low, so the simulated scene is essentially empty unless the
// confidence threshold is dropped; it exists for wiring and testability, not
// detection quality.
type SimulatedEngine struct {
	mu         sync.Mutex
	numClasses int

	graph   *G.ExprGraph
	input   *G.Node
	detOut  *G.Node
	protOut *G.Node
	machine G.VM

	closed bool
}

// NewSimulatedEngine builds the random-weight network for the given class
// count.
func NewSimulatedEngine(numClasses int, seed int64) (*SimulatedEngine, error) {
	rng := rand.New(rand.NewSource(seed))
	outCh := 4 + numClasses + simCoeffCount

	g := G.NewGraph()
	input := G.NewTensor(g, tensor.Float32, 4,
		G.WithShape(1, 3, simInputSide, simInputSide), G.WithName("input"))

	w1 := simWeights(g, rng, "w1", simHiddenCh, 3)
	c1, err := G.Conv2d(input, w1, tensor.Shape{3, 3}, []int{1, 1}, []int{2, 2}, []int{1, 1})
	if err != nil {
		return nil, errors.Wrap(err, "building conv1")
	}
	a1, err := G.Rectify(c1)
	if err != nil {
		return nil, errors.Wrap(err, "building relu1")
	}

	w2 := simWeights(g, rng, "w2", outCh, simHiddenCh)
	det, err := G.Conv2d(a1, w2, tensor.Shape{3, 3}, []int{1, 1}, []int{2, 2}, []int{1, 1})
	if err != nil {
		return nil, errors.Wrap(err, "building detection head")
	}

	w3 := simWeights(g, rng, "w3", simCoeffCount, simHiddenCh)
	prot, err := G.Conv2d(a1, w3, tensor.Shape{3, 3}, []int{1, 1}, []int{1, 1}, []int{1, 1})
	if err != nil {
		return nil, errors.Wrap(err, "building prototype head")
	}

	machine := G.NewTapeMachine(g)

	return &SimulatedEngine{
		numClasses: numClasses,
		graph:      g,
		input:      input,
		detOut:     det,
		protOut:    prot,
		machine:    machine,
	}, nil
}

// simWeights allocates a seeded random conv filter bank.
func simWeights(g *G.ExprGraph, rng *rand.Rand, name string, out, in int) *G.Node {
	backing := make([]float32, out*in*3*3)
	for i := range backing {
		backing[i] = float32(rng.NormFloat64()) * 0.5
	}
	w := tensor.New(tensor.WithShape(out, in, 3, 3), tensor.Of(tensor.Float32), tensor.WithBacking(backing))
	return G.NewTensor(g, tensor.Float32, 4, G.WithShape(out, in, 3, 3), G.WithName(name), G.WithValue(w))
}

// Infer evaluates the stack on the frame and assembles YOLO-shaped outputs:
// a channel-major detection tensor and a prototype tensor.
func (e *SimulatedEngine) Infer(ctx context.Context, img image.Image) ([]Output, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, errors.New("engine closed")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	inputData := make([]float32, 3*simInputSide*simInputSide)
	if err := PrepareInput(img, inputData, simInputSide); err != nil {
		return nil, err
	}
	in := tensor.New(tensor.WithShape(1, 3, simInputSide, simInputSide),
		tensor.Of(tensor.Float32), tensor.WithBacking(inputData))
	if err := G.Let(e.input, in); err != nil {
		return nil, errors.Wrap(err, "binding input")
	}

	if err := e.machine.RunAll(); err != nil {
		e.machine.Reset()
		return nil, errors.Wrap(err, "running simulated network")
	}

	detRaw := append([]float32(nil), e.detOut.Value().Data().([]float32)...)
	protRaw := append([]float32(nil), e.protOut.Value().Data().([]float32)...)
	e.machine.Reset()

	// Squash the linear head into YOLO ranges: boxes to (0,1), class scores
	// biased low so the simulated scene stays near-empty, coefficients raw.
	anchors := simGridSide * simGridSide
	outCh := 4 + e.numClasses + simCoeffCount
	for ch := 0; ch < outCh; ch++ {
		for i := 0; i < anchors; i++ {
			idx := ch*anchors + i
			switch {
			case ch < 4:
				detRaw[idx] = sigmoid(detRaw[idx])
			case ch < 4+e.numClasses:
				detRaw[idx] = sigmoid(detRaw[idx] - 4)
			}
		}
	}

	return []Output{
		{Data: detRaw, Shape: []int64{1, int64(outCh), int64(anchors)}},
		{Data: protRaw, Shape: []int64{1, simCoeffCount, simProtoSide, simProtoSide}},
	}, nil
}

// Name identifies the engine.
func (e *SimulatedEngine) Name() string { return "simulated" }

// Close releases the tape machine.
func (e *SimulatedEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.machine.Close()
		e.closed = true
	}
	return nil
}

func sigmoid(x float32) float32 {
	if x >= 0 {
		return 1 / (1 + math32.Exp(-x))
	}
	ex := math32.Exp(x)
	return ex / (1 + ex)
}
