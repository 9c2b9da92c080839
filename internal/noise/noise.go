// Package noise provides seeded coherent noise for terrain synthesis.
// A Field is built once per generation call and passed to every sampler,
// so two generations never share noise state.
package noise

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Field is a seeded 2D simplex noise source.
type Field struct {
	Seed int64
	os   opensimplex.Noise
}

// New returns a noise field for the given seed.
func New(seed int64) *Field {
	return &Field{
		Seed: seed,
		os:   opensimplex.New(seed),
	}
}

// Eval2 returns raw noise at (x, y), roughly in [-1, 1].
func (f *Field) Eval2(x, y float64) float64 {
	return f.os.Eval2(x, y)
}

// Octaves describes a fractal sum: Count layers starting at Frequency and
// Amplitude, doubling frequency and multiplying amplitude by Persistence
// per layer.
type Octaves struct {
	Count       int
	Frequency   float64
	Amplitude   float64
	Persistence float64
}

// Fractal sums the octave layers at (x, y). The result is not normalized;
// its magnitude is bounded by the sum of the layer amplitudes.
func (f *Field) Fractal(x, y float64, o Octaves) float64 {
	total := 0.0
	amplitude := o.Amplitude
	frequency := o.Frequency

	for i := 0; i < o.Count; i++ {
		total += f.os.Eval2(x*frequency, y*frequency) * amplitude
		amplitude *= o.Persistence
		frequency *= 2
	}

	return total
}
