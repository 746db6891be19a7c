package court

import (
	"math"
	"sort"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"gonum.org/v1/gonum/stat"
)

//Validate discards keypoints whose distances to the other confident keypoints disagree with
//the reference court. Distances are compared as image/court scale ratios against the median
//ratio of the frame, so one mis-localized point is dropped without losing the rest of the frame.
//Discarded and low confidence slots come back zeroed
func Validate(kps []detect.Keypoint, ref Reference, minConfidence, tolerance float64) []detect.Keypoint {
	out := make([]detect.Keypoint, len(kps))
	present := make([]int, 0, len(kps))
	for i, k := range kps {
		if i < len(ref.Points) && k.Present(minConfidence) {
			out[i] = k
			present = append(present, i)
		}
	}

	for len(present) >= 3 {
		worst, worstErr := -1, 0.0
		errs := pointErrors(out, present, ref)
		for n, e := range errs {
			if e > worstErr {
				worst, worstErr = n, e
			}
		}
		if worst < 0 || worstErr <= tolerance {
			break
		}

		out[present[worst]] = detect.Keypoint{}
		present = append(present[:worst], present[worst+1:]...)
	}

	return out
}

//pointErrors returns, per present slot, the median relative deviation of its scale ratios
func pointErrors(kps []detect.Keypoint, present []int, ref Reference) []float64 {
	n := len(present)
	ratios := make([][]float64, n)
	all := make([]float64, 0, n*(n-1)/2)

	for a := 0; a < n; a++ {
		ratios[a] = make([]float64, n)
		for b := a + 1; b < n; b++ {
			i, j := present[a], present[b]
			dRef := ref.Points[i].Dist(ref.Points[j])
			r := math.Inf(1)
			if dRef > 0 {
				r = kps[i].Point().Dist(kps[j].Point()) / dRef
			}
			ratios[a][b] = r
			all = append(all, r)
		}
	}
	for a := 0; a < n; a++ {
		for b := 0; b < a; b++ {
			ratios[a][b] = ratios[b][a]
		}
	}

	scale := median(all)
	errs := make([]float64, n)
	if scale <= 0 || math.IsInf(scale, 0) {
		return errs
	}

	for a := 0; a < n; a++ {
		dev := make([]float64, 0, n-1)
		for b := 0; b < n; b++ {
			if a != b {
				dev = append(dev, math.Abs(ratios[a][b]/scale-1))
			}
		}
		errs[a] = median(dev)
	}

	return errs
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	return stat.Quantile(0.5, stat.Empirical, s, nil)
}
