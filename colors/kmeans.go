package colors

import "github.com/chewxy/math32"

const (
	kmeansClusters      = 3
	kmeansMaxIterations = 10
)

// sample is one weighted pixel observation.
type sample struct {
	hsv    HSV
	r      uint8
	g      uint8
	b      uint8
	weight int
}

// cluster aggregates the samples assigned to one centroid.
type cluster struct {
	centroid   HSV
	population int
	// Channel sums for the mean RGB of the cluster.
	sumR, sumG, sumB int64
}

// MeanHSV returns the cluster centroid.
func (c *cluster) MeanHSV() HSV { return c.centroid }

// MeanRGB returns the population-weighted mean RGB of the cluster.
func (c *cluster) MeanRGB() (uint8, uint8, uint8) {
	if c.population == 0 {
		return 0, 0, 0
	}
	n := int64(c.population)
	return uint8(c.sumR / n), uint8(c.sumG / n), uint8(c.sumB / n)
}

// sampleDistance measures HSV distance with circular hue handling. Achromatic
// samples compare on saturation and value only.
func sampleDistance(a, b HSV) float32 {
	ds := a.S - b.S
	dv := a.V - b.V
	if a.S < graySatThreshold || b.S < graySatThreshold {
		return ds*ds + dv*dv
	}
	dh := HueDistance(a.H, b.H) / 180
	return dh*dh + ds*ds + dv*dv
}

// runKMeans clusters the samples into up to kmeansClusters groups, iterating
// at most kmeansMaxIterations times. Seeding is deterministic (evenly spaced
// samples) so the same input always yields the same clusters.
//
// Returns clusters ordered by descending population; empty clusters are
// dropped.
func runKMeans(samples []sample) []*cluster {
	n := len(samples)
	if n == 0 {
		return nil
	}

	k := kmeansClusters
	if n < k {
		k = n
	}

	centroids := make([]HSV, k)
	for i := 0; i < k; i++ {
		centroids[i] = samples[i*n/k].hsv
	}

	assignment := make([]int, n)
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, s := range samples {
			best := 0
			bestDist := sampleDistance(s.hsv, centroids[0])
			for c := 1; c < k; c++ {
				if d := sampleDistance(s.hsv, centroids[c]); d < bestDist {
					bestDist = d
					best = c
				}
			}
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids. Hue is circular, so it is averaged through its
		// unit-vector components.
		for c := 0; c < k; c++ {
			var sinSum, cosSum, sSum, vSum float32
			var count int
			for i, s := range samples {
				if assignment[i] != c {
					continue
				}
				w := float32(s.weight)
				rad := s.hsv.H * math32.Pi / 180
				sinSum += w * math32.Sin(rad)
				cosSum += w * math32.Cos(rad)
				sSum += w * s.hsv.S
				vSum += w * s.hsv.V
				count += s.weight
			}
			if count == 0 {
				continue
			}
			h := math32.Atan2(sinSum, cosSum) * 180 / math32.Pi
			if h < 0 {
				h += 360
			}
			centroids[c] = HSV{H: h, S: sSum / float32(count), V: vSum / float32(count)}
		}
	}

	clusters := make([]*cluster, k)
	for c := 0; c < k; c++ {
		clusters[c] = &cluster{centroid: centroids[c]}
	}
	for i, s := range samples {
		cl := clusters[assignment[i]]
		cl.population += s.weight
		cl.sumR += int64(s.r) * int64(s.weight)
		cl.sumG += int64(s.g) * int64(s.weight)
		cl.sumB += int64(s.b) * int64(s.weight)
	}

	out := make([]*cluster, 0, k)
	for _, cl := range clusters {
		if cl.population > 0 {
			out = append(out, cl)
		}
	}
	// Rank by population, stable for determinism.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].population > out[j-1].population; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
