package identify

import (
	"encoding/base64"
	"image"

	"gocv.io/x/gocv"

	"github.com/saturnino-fabrica-de-software/vigia/internal/extractor"
)

// makeThumbnail crops the detected face out of the frame and returns it as
// a base64 JPEG. Any decode or bounds problem yields nil; thumbnails are
// best effort.
func makeThumbnail(frame []byte, box extractor.BoundingBox, cfg ConsumerConfig) *string {
	img, err := gocv.IMDecode(frame, gocv.IMReadColor)
	if err != nil || img.Empty() {
		return nil
	}
	defer img.Close()

	rect := image.Rect(box.X, box.Y, box.X+box.Width, box.Y+box.Height)
	rect = rect.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if rect.Empty() {
		return nil
	}

	region := img.Region(rect)
	defer region.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(region, &resized, image.Pt(cfg.ThumbnailWidth, cfg.ThumbnailHeight), 0, 0, gocv.InterpolationArea)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, resized, []int{gocv.IMWriteJpegQuality, cfg.JpegQuality})
	if err != nil {
		return nil
	}
	defer buf.Close()

	encoded := base64.StdEncoding.EncodeToString(buf.GetBytes())
	return &encoded
}
