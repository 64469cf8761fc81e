// Package signal provides 1-D profile analysis helpers: Gaussian
// smoothing, peak detection with prominence filtering, and robust
// spacing statistics.
package signal

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GaussianSmooth convolves the profile with a Gaussian kernel of the
// given odd size. Sigma is derived from the kernel size the same way
// OpenCV does when sigma is left at zero. Borders are reflected.
func GaussianSmooth(profile []float64, kernelSize int) []float64 {
	if kernelSize < 3 {
		kernelSize = 3
	}
	if kernelSize%2 == 0 {
		kernelSize++
	}
	if len(profile) == 0 {
		return nil
	}

	sigma := 0.3*(float64(kernelSize-1)*0.5-1) + 0.8
	half := kernelSize / 2

	kernel := make([]float64, kernelSize)
	var sum float64
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	out := make([]float64, len(profile))
	for i := range profile {
		var acc float64
		for k := -half; k <= half; k++ {
			acc += profile[reflect101(i+k, len(profile))] * kernel[k+half]
		}
		out[i] = acc
	}
	return out
}

// reflect101 maps an out-of-range index back into [0, n) by mirroring
// without repeating the border sample (OpenCV's BORDER_REFLECT_101).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

// FindPeaks returns indices of local maxima in the profile that are at
// least minDistance samples apart and have a topographic prominence of
// at least minProminence. Indices are returned in ascending order.
func FindPeaks(profile []float64, minDistance int, minProminence float64) []int {
	if minDistance < 1 {
		minDistance = 1
	}

	candidates := localMaxima(profile)

	// Prominence filter
	var peaks []int
	for _, p := range candidates {
		if Prominence(profile, p) >= minProminence {
			peaks = append(peaks, p)
		}
	}

	// Distance filter: keep the tallest peaks first, suppress neighbors
	sort.Slice(peaks, func(i, j int) bool {
		return profile[peaks[i]] > profile[peaks[j]]
	})
	suppressed := make(map[int]bool)
	var kept []int
	for _, p := range peaks {
		if suppressed[p] {
			continue
		}
		kept = append(kept, p)
		for _, q := range peaks {
			if q != p && abs(q-p) < minDistance {
				suppressed[q] = true
			}
		}
	}

	sort.Ints(kept)
	return kept
}

// localMaxima finds strict local maxima, treating flat plateaus as a
// single peak at their midpoint.
func localMaxima(profile []float64) []int {
	var maxima []int
	n := len(profile)
	i := 1
	for i < n-1 {
		if profile[i-1] < profile[i] {
			// Walk over a possible plateau
			j := i
			for j < n-1 && profile[j+1] == profile[i] {
				j++
			}
			if j < n-1 && profile[j+1] < profile[i] {
				maxima = append(maxima, (i+j)/2)
			}
			i = j + 1
		} else {
			i++
		}
	}
	return maxima
}

// Prominence computes the topographic prominence of the peak at index
// p: its height above the higher of the two bases found by descending
// left and right until a sample taller than the peak (or the signal
// edge) is reached.
func Prominence(profile []float64, p int) float64 {
	height := profile[p]

	leftBase := height
	for i := p - 1; i >= 0; i-- {
		if profile[i] > height {
			break
		}
		if profile[i] < leftBase {
			leftBase = profile[i]
		}
	}

	rightBase := height
	for i := p + 1; i < len(profile); i++ {
		if profile[i] > height {
			break
		}
		if profile[i] < rightBase {
			rightBase = profile[i]
		}
	}

	return height - math.Max(leftBase, rightBase)
}

// Median returns the linearly interpolated median of the values.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.LinInterp, sorted, nil)
}

// Mean returns the arithmetic mean of the values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Diffs returns consecutive differences between sorted sample
// positions, e.g. spacings between detected peak indices.
func Diffs(indices []int) []float64 {
	if len(indices) < 2 {
		return nil
	}
	out := make([]float64, len(indices)-1)
	for i := 1; i < len(indices); i++ {
		out[i-1] = float64(indices[i] - indices[i-1])
	}
	return out
}

// FilterAroundMedian keeps values within the given relative band of
// their median, e.g. band=0.4 keeps values within 40% of the median.
func FilterAroundMedian(values []float64, band float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	med := Median(values)
	var kept []float64
	for _, v := range values {
		if math.Abs(v-med) < band*med {
			kept = append(kept, v)
		}
	}
	return kept
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
