package colors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSamples(rgb [3]uint8, count, weight int) []sample {
	out := make([]sample, count)
	for i := range out {
		out[i] = sample{
			hsv: RGBToHSV(rgb[0], rgb[1], rgb[2]),
			r:   rgb[0], g: rgb[1], b: rgb[2],
			weight: weight,
		}
	}
	return out
}

func TestRunKMeansTwoPopulations(t *testing.T) {
	// 40 blue samples against 10 red ones: blue must rank first.
	samples := append(makeSamples([3]uint8{30, 40, 200}, 40, 1), makeSamples([3]uint8{200, 20, 20}, 10, 1)...)

	clusters := runKMeans(samples)
	require.NotEmpty(t, clusters)
	assert.Equal(t, Blue, NearestPaletteColor(clusters[0].MeanHSV(), false))

	for i := 1; i < len(clusters); i++ {
		assert.GreaterOrEqual(t, clusters[i-1].population, clusters[i].population,
			"clusters are ordered by descending population")
	}
}

func TestRunKMeansWeightsShiftRanking(t *testing.T) {
	// Equal counts, but the red samples carry double weight.
	samples := append(makeSamples([3]uint8{30, 40, 200}, 15, 1), makeSamples([3]uint8{200, 20, 20}, 15, 2)...)

	clusters := runKMeans(samples)
	require.NotEmpty(t, clusters)
	assert.Equal(t, Red, NearestPaletteColor(clusters[0].MeanHSV(), false))
}

func TestRunKMeansDeterministic(t *testing.T) {
	samples := append(makeSamples([3]uint8{30, 40, 200}, 20, 1), makeSamples([3]uint8{230, 220, 30}, 20, 1)...)

	a := runKMeans(samples)
	b := runKMeans(samples)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].population, b[i].population)
		assert.InDelta(t, float64(a[i].MeanHSV().H), float64(b[i].MeanHSV().H), 1e-4)
	}
}

func TestRunKMeansFewerSamplesThanClusters(t *testing.T) {
	clusters := runKMeans(makeSamples([3]uint8{200, 20, 20}, 2, 1))
	require.NotEmpty(t, clusters)
	assert.LessOrEqual(t, len(clusters), 2, "k is capped at the sample count")
}

func TestRunKMeansEmptyInput(t *testing.T) {
	assert.Nil(t, runKMeans(nil))
}

func TestClusterMeanRGB(t *testing.T) {
	clusters := runKMeans(makeSamples([3]uint8{10, 150, 20}, 30, 1))
	require.NotEmpty(t, clusters)
	r, g, b := clusters[0].MeanRGB()
	assert.Equal(t, uint8(10), r)
	assert.Equal(t, uint8(150), g)
	assert.Equal(t, uint8(20), b)
}
