package recording

import (
	"image"

	"gocv.io/x/gocv"
)

// MotionScoreThreshold is the score above which a frame counts as motion
const MotionScoreThreshold = 0.1

// MotionScorer scores a frame for foreground motion
type MotionScorer interface {
	Score(frame gocv.Mat) float64
	Close()
}

// Detector keeps an exponentially decayed background image and scores each
// frame by its foreground pixel ratio. The first frame seeds the background
// and always scores zero.
type Detector struct {
	alpha         float64
	diffThreshold float32
	minArea       int

	background  gocv.Mat
	kernel      gocv.Mat
	initialized bool
}

// NewDetector creates a detector with the standard tuning
func NewDetector() *Detector {
	return &Detector{
		alpha:         0.1,
		diffThreshold: 25,
		minArea:       5000,
		kernel:        gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3)),
	}
}

// Score returns foregroundPixels / totalPixels, gated to zero when the
// foreground is below the minimum area.
func (d *Detector) Score(frame gocv.Mat) float64 {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	gocv.GaussianBlur(gray, &gray, image.Pt(21, 21), 0, 0, gocv.BorderDefault)

	if !d.initialized {
		d.background = gocv.NewMat()
		gray.ConvertTo(&d.background, gocv.MatTypeCV32F)
		d.initialized = true
		return 0
	}

	gocv.AccumulatedWeighted(gray, &d.background, d.alpha)

	bg := gocv.NewMat()
	defer bg.Close()
	d.background.ConvertTo(&bg, gocv.MatTypeCV8U)

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, bg, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, d.diffThreshold, 255, gocv.ThresholdBinary)
	for i := 0; i < 2; i++ {
		gocv.Dilate(mask, &mask, d.kernel)
	}
	for i := 0; i < 2; i++ {
		gocv.Erode(mask, &mask, d.kernel)
	}

	return gateScore(gocv.CountNonZero(mask), mask.Rows()*mask.Cols(), d.minArea)
}

// gateScore converts a foreground pixel count into the motion score. The
// foreground must strictly exceed the minimum area to count at all.
func gateScore(foreground, total, minArea int) float64 {
	if foreground <= minArea || total == 0 {
		return 0
	}
	return float64(foreground) / float64(total)
}

// Close releases the detector's mats
func (d *Detector) Close() {
	if d.initialized {
		d.background.Close()
	}
	d.kernel.Close()
}

var _ MotionScorer = (*Detector)(nil)
