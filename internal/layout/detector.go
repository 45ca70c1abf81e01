package layout

import (
	"math"

	"github.com/liunuozhi/pdf2zh-app/internal/logger"
	"github.com/liunuozhi/pdf2zh-app/internal/types"
)

const (
	// inputSize is the model's square input resolution.
	inputSize = 1024
	// confidenceThreshold drops weak detections before they leave this package.
	confidenceThreshold = 0.25
	// padValue fills the letterbox border (114 gray, normalized).
	padValue = float32(114.0 / 255.0)
)

// letterbox holds the forward-transform parameters needed to map model-space
// boxes back onto the source image.
type letterbox struct {
	scale      float64
	padX, padY int
}

// letterboxImage resamples a packed RGB image into a [3,S,S] CHW float tensor,
// preserving aspect ratio and centering with gray padding. Channels are
// normalized to 0..1.
func letterboxImage(rgb []byte, width, height int) ([]float32, letterbox) {
	s := math.Min(float64(inputSize)/float64(width), float64(inputSize)/float64(height))
	newW := int(math.Round(float64(width) * s))
	newH := int(math.Round(float64(height) * s))
	padX := (inputSize - newW) / 2
	padY := (inputSize - newH) / 2

	tensor := make([]float32, 3*inputSize*inputSize)
	for i := range tensor {
		tensor[i] = padValue
	}

	plane := inputSize * inputSize
	for y := 0; y < newH; y++ {
		srcY := y * height / newH
		for x := 0; x < newW; x++ {
			srcX := x * width / newW
			src := (srcY*width + srcX) * 3
			dst := (padY+y)*inputSize + (padX + x)
			tensor[dst] = float32(rgb[src]) / 255.0
			tensor[plane+dst] = float32(rgb[src+1]) / 255.0
			tensor[2*plane+dst] = float32(rgb[src+2]) / 255.0
		}
	}

	return tensor, letterbox{scale: s, padX: padX, padY: padY}
}

// Detect runs the layout model over one rasterized page and returns boxes in
// source-image pixel coordinates. Every returned box has confidence ≥ 0.25
// and a canonical class name.
func Detect(modelPath string, rgb []byte, width, height int) ([]types.LayoutBox, error) {
	tensor, lb := letterboxImage(rgb, width, height)

	data, shape, err := run(modelPath, tensor)
	if err != nil {
		return nil, err
	}

	boxes := decodeOutput(data, shape, lb)
	logger.Debug("layout detection complete",
		logger.Int("width", width),
		logger.Int("height", height),
		logger.Int("boxes", len(boxes)))
	return boxes, nil
}

// decodeOutput interprets the model's first output. A trailing dimension of 6
// is the post-NMS format [x1,y1,x2,y2,conf,class]; anything else is a raw
// YOLO head, possibly transposed.
func decodeOutput(data []float32, shape []int64, lb letterbox) []types.LayoutBox {
	if len(shape) == 3 && shape[2] == 6 {
		return decodePostNMS(data, int(shape[1]), lb)
	}
	if len(shape) == 3 {
		rows, cols := int(shape[1]), int(shape[2])
		// A raw head is [1,F,N] when exported transposed: detections vastly
		// outnumber the 4+numClasses feature rows.
		if cols > rows && rows <= 20 {
			return decodeRaw(data, rows, cols, true, lb)
		}
		return decodeRaw(data, cols, rows, false, lb)
	}
	logger.Warn("unexpected layout model output rank",
		logger.Int("dims", len(shape)))
	return nil
}

func decodePostNMS(data []float32, n int, lb letterbox) []types.LayoutBox {
	var boxes []types.LayoutBox
	for i := 0; i < n; i++ {
		row := data[i*6 : i*6+6]
		conf := float64(row[4])
		if conf < confidenceThreshold {
			continue
		}
		boxes = append(boxes, makeBox(
			float64(row[0]), float64(row[1]),
			float64(row[2])-float64(row[0]), float64(row[3])-float64(row[1]),
			int(row[5]), conf, lb))
	}
	return boxes
}

// decodeRaw handles the pre-NMS head: F = 4 + numClasses per detection,
// fields [cx,cy,w,h,scores...]. transposed selects [1,F,N] layout.
// No suppression is applied here; the shipped export includes the NMS op and
// this branch is a fallback.
func decodeRaw(data []float32, features, n int, transposed bool, lb letterbox) []types.LayoutBox {
	numClasses := features - 4
	if numClasses <= 0 {
		return nil
	}

	at := func(det, f int) float64 {
		if transposed {
			return float64(data[f*n+det])
		}
		return float64(data[det*features+f])
	}

	var boxes []types.LayoutBox
	for i := 0; i < n; i++ {
		best, bestClass := 0.0, 0
		for c := 0; c < numClasses; c++ {
			if s := at(i, 4+c); s > best {
				best, bestClass = s, c
			}
		}
		if best < confidenceThreshold {
			continue
		}
		cx, cy := at(i, 0), at(i, 1)
		w, h := at(i, 2), at(i, 3)
		boxes = append(boxes, makeBox(cx-w/2, cy-h/2, w, h, bestClass, best, lb))
	}
	return boxes
}

// makeBox undoes the letterbox transform and clamps to the source image.
func makeBox(x, y, w, h float64, classID int, conf float64, lb letterbox) types.LayoutBox {
	x = (x - float64(lb.padX)) / lb.scale
	y = (y - float64(lb.padY)) / lb.scale
	w /= lb.scale
	h /= lb.scale
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return types.LayoutBox{
		Rect:       types.ImageRect{X: x, Y: y, Width: w, Height: h},
		ClassID:    classID,
		ClassName:  types.ClassNameFor(classID),
		Confidence: conf,
	}
}
