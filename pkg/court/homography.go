package court

import (
	"errors"
	"fmt"
	"math"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/detect"
	"gonum.org/v1/gonum/mat"
)

var (
	//ErrTooFewPoints is returned when fewer than four correspondences are available
	ErrTooFewPoints = errors.New("too few point correspondences")
	//ErrDegenerate is returned for collinear points or a singular transform
	ErrDegenerate = errors.New("degenerate point configuration")
)

//Homography is a row-major 3x3 projective transform valid for a single frame
type Homography [9]float64

//Identity returns the identity transform
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

//Apply maps p through the transform. ok is false when p maps to infinity
func (h Homography) Apply(p detect.Point) (detect.Point, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < 1e-12 {
		return detect.Point{}, false
	}
	return detect.Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}, true
}

//Inverse returns the inverse transform
func (h Homography) Inverse() (Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.dense()); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	return fromDense(&inv), nil
}

//Mul returns h∘o, the transform applying o first
func (h Homography) Mul(o Homography) Homography {
	var r mat.Dense
	r.Mul(h.dense(), o.dense())
	return fromDense(&r)
}

func (h Homography) dense() *mat.Dense {
	data := make([]float64, 9)
	copy(data, h[:])
	return mat.NewDense(3, 3, data)
}

func fromDense(m mat.Matrix) Homography {
	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r*3+c] = m.At(r, c)
		}
	}
	return h.normalized()
}

//normalized scales the transform so its bottom-right entry is one when possible
func (h Homography) normalized() Homography {
	if math.Abs(h[8]) < 1e-12 {
		return h
	}
	s := h[8]
	for i := range h {
		h[i] /= s
	}
	return h
}

//Fit estimates the transform mapping src[i] onto dst[i] with the normalized direct linear transform
func Fit(src, dst []detect.Point) (Homography, error) {
	if len(src) != len(dst) {
		return Homography{}, fmt.Errorf("Fit: %d source points, %d destination points", len(src), len(dst))
	}
	if len(src) < 4 {
		return Homography{}, ErrTooFewPoints
	}
	if collinear(src) || collinear(dst) {
		return Homography{}, ErrDegenerate
	}

	tSrc, nSrc := conditioner(src)
	tDst, nDst := conditioner(dst)

	n := len(src)
	a := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		x, y := nSrc[i].X, nSrc[i].Y
		u, v := nDst[i].X, nDst[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return Homography{}, fmt.Errorf("%w: SVD did not converge", ErrDegenerate)
	}

	//the solution is unique only when a single singular value vanishes
	values := svd.Values(nil)
	padded := make([]float64, 9)
	copy(padded, values)
	if padded[0] == 0 || padded[7] <= 1e-9*padded[0] {
		return Homography{}, ErrDegenerate
	}

	var vt mat.Dense
	svd.VTo(&vt)
	var hn Homography
	for i := 0; i < 9; i++ {
		hn[i] = vt.At(i, 8)
	}

	tDstInv, err := tDst.Inverse()
	if err != nil {
		return Homography{}, err
	}
	h := tDstInv.Mul(hn).Mul(tSrc)

	if math.Abs(mat.Det(h.dense())) < 1e-12 {
		return Homography{}, ErrDegenerate
	}

	return h, nil
}

//conditioner translates points to their centroid and scales them to a mean distance of √2
func conditioner(pts []detect.Point) (Homography, []detect.Point) {
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))

	var mean float64
	for _, p := range pts {
		mean += math.Hypot(p.X-cx, p.Y-cy)
	}
	mean /= float64(len(pts))

	s := 1.0
	if mean > 0 {
		s = math.Sqrt2 / mean
	}

	t := Homography{s, 0, -s * cx, 0, s, -s * cy, 0, 0, 1}
	out := make([]detect.Point, len(pts))
	for i, p := range pts {
		out[i] = detect.Point{X: s * (p.X - cx), Y: s * (p.Y - cy)}
	}

	return t, out
}

//collinear reports whether all points lie (nearly) on one line
func collinear(pts []detect.Point) bool {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	diag2 := (maxX-minX)*(maxX-minX) + (maxY-minY)*(maxY-minY)
	if diag2 == 0 {
		return true
	}

	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			for k := j + 1; k < len(pts); k++ {
				cross := (pts[j].X-pts[i].X)*(pts[k].Y-pts[i].Y) - (pts[j].Y-pts[i].Y)*(pts[k].X-pts[i].X)
				if math.Abs(cross) > 1e-3*diag2 {
					return false
				}
			}
		}
	}

	return true
}
