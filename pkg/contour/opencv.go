//go:build gocv

package contour

import (
	"image"

	"gocv.io/x/gocv"

	"grindsize/internal/models"
)

// OpenCV traces external contours with cv::findContours. Build with the
// gocv tag and an OpenCV installation to enable it.
type OpenCV struct{}

// Trace implements Tracer
func (OpenCV) Trace(mask *models.Mask) [][]image.Point {
	if mask == nil || mask.Validate() != nil {
		return nil
	}

	mat, err := gocv.NewMatFromBytes(mask.Height, mask.Width, gocv.MatTypeCV8UC1, mask.Pix)
	if err != nil {
		return nil
	}
	defer mat.Close()

	contours := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	out := make([][]image.Point, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		out = append(out, contours.At(i).ToPoints())
	}
	return out
}

func init() {
	available["opencv"] = OpenCV{}
}
