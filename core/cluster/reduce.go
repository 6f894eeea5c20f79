package cluster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// reduceDimensions projects the vectors onto their top principal components.
// The projection is deterministic: eigenvectors are sorted by descending
// eigenvalue and sign-fixed so the largest-magnitude component is positive.
func reduceDimensions(vectors [][]float32, dims int) ([][]float64, error) {
	n := len(vectors)
	if n == 0 {
		return nil, fmt.Errorf("no vectors to reduce")
	}
	d := len(vectors[0])
	for i, v := range vectors {
		if len(v) != d {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), d)
		}
	}
	if dims > d {
		dims = d
	}
	if dims > n {
		dims = n
	}

	// Center the data.
	means := make([]float64, d)
	for _, v := range vectors {
		for j, x := range v {
			means[j] += float64(x)
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}
	centered := mat.NewDense(n, d, nil)
	for i, v := range vectors {
		for j, x := range v {
			centered.Set(i, j, float64(x)-means[j])
		}
	}

	// Covariance matrix.
	cov := mat.NewSymDense(d, nil)
	denom := float64(n - 1)
	if n < 2 {
		denom = 1
	}
	for a := 0; a < d; a++ {
		for b := a; b < d; b++ {
			var sum float64
			for i := 0; i < n; i++ {
				sum += centered.At(i, a) * centered.At(i, b)
			}
			cov.SetSym(a, b, sum/denom)
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return nil, fmt.Errorf("eigendecomposition failed")
	}
	values := eig.Values(nil)
	var eigenvectors mat.Dense
	eig.VectorsTo(&eigenvectors)

	// EigenSym returns ascending eigenvalues, take the last dims columns
	// in reverse order.
	components := mat.NewDense(d, dims, nil)
	for k := 0; k < dims; k++ {
		col := len(values) - 1 - k
		maxAbs, maxVal := 0.0, 0.0
		for row := 0; row < d; row++ {
			val := eigenvectors.At(row, col)
			if abs := math.Abs(val); abs > maxAbs {
				maxAbs, maxVal = abs, val
			}
		}
		sign := 1.0
		if maxVal < 0 {
			sign = -1.0
		}
		for row := 0; row < d; row++ {
			components.Set(row, k, sign*eigenvectors.At(row, col))
		}
	}

	var projected mat.Dense
	projected.Mul(centered, components)

	reduced := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, dims)
		for k := 0; k < dims; k++ {
			row[k] = projected.At(i, k)
		}
		reduced[i] = normalize(row)
	}
	return reduced, nil
}

// normalize scales a vector to unit length so distance thresholds are
// comparable across corpora. Zero vectors are returned unchanged.
func normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return v
}
