package ai

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/mat"

	ort "github.com/yalue/onnxruntime_go"

	"cutout-studio/pkg/geometry"
)

// Fixed input geometry of the prompted segmentation family.
const (
	promptInputW  = 1024
	promptInputH  = 684
	promptTarget  = 1024
	promptPadSize = 256
)

// Config locates the model files and the onnxruntime shared library.
type Config struct {
	ModelDir    string
	LibraryPath string
}

// Catalog lists the models found in a directory. Prompted models come as
// name.encoder.onnx / name.decoder.onnx pairs; every other .onnx file is
// a whole-image model.
type Catalog struct {
	WholeImage []string
	Prompted   []string
}

// DiscoverModels scans the model directory. A missing directory yields an
// empty catalog, not an error.
func DiscoverModels(dir string) Catalog {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Catalog{}
	}

	var c Catalog
	encoders := map[string]bool{}
	decoders := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".onnx") {
			continue
		}
		switch {
		case strings.HasSuffix(name, ".encoder.onnx"):
			encoders[strings.TrimSuffix(name, ".encoder.onnx")] = true
		case strings.HasSuffix(name, ".decoder.onnx"):
			decoders[strings.TrimSuffix(name, ".decoder.onnx")] = true
		default:
			c.WholeImage = append(c.WholeImage, strings.TrimSuffix(name, ".onnx"))
		}
	}
	for name := range encoders {
		if decoders[name] {
			c.Prompted = append(c.Prompted, name)
		}
	}
	sort.Strings(c.WholeImage)
	sort.Strings(c.Prompted)
	return c
}

var ortInit sync.Once

// Session owns the ONNX runtime sessions and the cached prompted-model
// embedding. It is not safe for concurrent use; the worker serializes
// access.
type Session struct {
	cfg Config

	whole        map[string]*wholeSession
	encoder      *ort.DynamicAdvancedSession
	decoder      *ort.DynamicAdvancedSession
	promptedName string // name of the loaded prompted model pair

	// Cached encoder output plus the image identity it was computed for.
	embedding []ort.Value
	embedW    int
	embedH    int

	unusable map[string]bool
}

type wholeSession struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
}

// NewSession initializes the ONNX runtime environment once and returns an
// empty session. Model sessions are created lazily on first use.
func NewSession(cfg Config) (*Session, error) {
	var initErr error
	ortInit.Do(func() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize onnx runtime: %w", initErr)
	}
	return &Session{
		cfg:      cfg,
		whole:    map[string]*wholeSession{},
		unusable: map[string]bool{},
	}, nil
}

// Close destroys all loaded sessions and the cached embedding.
func (s *Session) Close() {
	for _, w := range s.whole {
		w.session.Destroy()
	}
	s.whole = map[string]*wholeSession{}
	s.dropPromptedSessions()
}

// Usable reports whether a model has not been marked broken this session.
func (s *Session) Usable(name string) bool { return !s.unusable[name] }

// Retry clears the unusable mark so the next run attempts the model again.
func (s *Session) Retry(name string) { delete(s.unusable, name) }

func (s *Session) fail(name string, err error) error {
	s.unusable[name] = true
	return &ModelError{Model: name, Err: err}
}

// RunWholeImage runs a whole-image model over the crop and returns a
// dense probability map sized back to the crop.
func (s *Session) RunWholeImage(name string, crop *image.NRGBA) (*RawOutput, error) {
	if s.unusable[name] {
		return nil, &ModelError{Model: name, Err: fmt.Errorf("marked unusable, retry explicitly")}
	}
	ws, err := s.loadWhole(name)
	if err != nil {
		return nil, s.fail(name, err)
	}

	// Smaller input side for the u2net family, everyone else takes 1024.
	target := 1024
	if strings.Contains(strings.ToLower(name), "u2net") {
		target = 320
	}

	tensorData := preprocessWhole(crop, name, target)
	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(target), int64(target)), tensorData)
	if err != nil {
		return nil, s.fail(name, fmt.Errorf("failed to create input tensor: %w", err))
	}
	defer input.Destroy()

	outputs := make([]ort.Value, 1)
	if err := ws.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, s.fail(name, fmt.Errorf("inference failed: %w", err))
	}
	defer outputs[0].Destroy()

	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, s.fail(name, fmt.Errorf("unexpected output tensor type"))
	}
	data := outTensor.GetData()
	side := int(math.Sqrt(float64(len(data))))
	if side*side != len(data) {
		// Multi-channel output: use the first channel.
		side = target
		if side*side > len(data) {
			return nil, s.fail(name, fmt.Errorf("unexpected output shape (%d values)", len(data)))
		}
		data = data[:side*side]
	}

	probs := postprocessWhole(data, name)
	b := crop.Bounds()
	dense := resizeGrayF32(probs, side, side, b.Dx(), b.Dy())
	return &RawOutput{
		Kind:   KindDense,
		Dense:  dense,
		DenseW: b.Dx(),
		DenseH: b.Dy(),
	}, nil
}

// EnsureEmbedding computes and caches the prompted-model image embedding.
// The cached embedding is keyed on the image dimensions; a resize or image
// swap must call InvalidateEmbedding first.
func (s *Session) EnsureEmbedding(name string, img *image.NRGBA) error {
	if s.unusable[name] {
		return &ModelError{Model: name, Err: fmt.Errorf("marked unusable, retry explicitly")}
	}
	b := img.Bounds()
	if s.embedding != nil && s.promptedName == name && s.embedW == b.Dx() && s.embedH == b.Dy() {
		return nil
	}
	if err := s.loadPrompted(name); err != nil {
		return s.fail(name, err)
	}
	s.dropEmbedding()

	tensorData, _, _ := preprocessPrompted(img)
	input, err := ort.NewTensor(ort.NewShape(int64(promptInputH), int64(promptInputW), 3), tensorData)
	if err != nil {
		return s.fail(name, fmt.Errorf("failed to create encoder tensor: %w", err))
	}
	defer input.Destroy()

	outputs := make([]ort.Value, 1)
	if err := s.encoder.Run([]ort.Value{input}, outputs); err != nil {
		return s.fail(name, fmt.Errorf("encoder inference failed: %w", err))
	}

	s.embedding = outputs
	s.embedW = b.Dx()
	s.embedH = b.Dy()
	return nil
}

// HasEmbedding reports whether a cached embedding matches the given
// image dimensions.
func (s *Session) HasEmbedding(width, height int) bool {
	return s.embedding != nil && s.embedW == width && s.embedH == height
}

// InvalidateEmbedding drops the cached embedding, forcing recomputation
// on the next prompted run.
func (s *Session) InvalidateEmbedding() { s.dropEmbedding() }

// RunPrompted runs the prompted decoder against the cached embedding.
// The logits come back at the decoder's fixed resolution together with
// the transform mapping that plane onto source pixels. Box prompts are
// passed as two corner points with the corner labels.
func (s *Session) RunPrompted(name string, points []Point) (*RawOutput, error) {
	if s.embedding == nil {
		return nil, &ModelError{Model: name, Err: fmt.Errorf("no image embedding computed")}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no prompt points")
	}

	fwd, inv, err := promptTransform(s.embedW, s.embedH)
	if err != nil {
		return nil, s.fail(name, err)
	}
	toFixed := affineFromMat(fwd)

	// Pad the prompt with one ignore point, per the decoder contract.
	coords := make([]float32, 0, (len(points)+1)*2)
	labels := make([]float32, 0, len(points)+1)
	for _, p := range points {
		q := toFixed.Apply(geometry.Point2D{X: p.X, Y: p.Y})
		coords = append(coords, float32(q.X), float32(q.Y))
		labels = append(labels, float32(p.Label))
	}
	coords = append(coords, 0, 0)
	labels = append(labels, -1)
	n := int64(len(points) + 1)

	tCoords, err := ort.NewTensor(ort.NewShape(1, n, 2), coords)
	if err != nil {
		return nil, s.fail(name, fmt.Errorf("failed to create coords tensor: %w", err))
	}
	defer tCoords.Destroy()

	tLabels, err := ort.NewTensor(ort.NewShape(1, n), labels)
	if err != nil {
		return nil, s.fail(name, fmt.Errorf("failed to create labels tensor: %w", err))
	}
	defer tLabels.Destroy()

	tMaskIn, err := ort.NewTensor(ort.NewShape(1, 1, promptPadSize, promptPadSize),
		make([]float32, promptPadSize*promptPadSize))
	if err != nil {
		return nil, s.fail(name, fmt.Errorf("failed to create mask input tensor: %w", err))
	}
	defer tMaskIn.Destroy()

	tHasMask, err := ort.NewTensor(ort.NewShape(1), []float32{0})
	if err != nil {
		return nil, s.fail(name, fmt.Errorf("failed to create has-mask tensor: %w", err))
	}
	defer tHasMask.Destroy()

	tImSize, err := ort.NewTensor(ort.NewShape(2), []float32{promptInputH, promptInputW})
	if err != nil {
		return nil, s.fail(name, fmt.Errorf("failed to create im-size tensor: %w", err))
	}
	defer tImSize.Destroy()

	inputs := []ort.Value{s.embedding[0], tCoords, tLabels, tMaskIn, tHasMask, tImSize}
	outputs := make([]ort.Value, 3)
	if err := s.decoder.Run(inputs, outputs); err != nil {
		return nil, s.fail(name, fmt.Errorf("decoder inference failed: %w", err))
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	masksTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, s.fail(name, fmt.Errorf("unexpected decoder output type"))
	}
	logits := masksTensor.GetData()
	if len(logits) < promptInputH*promptInputW {
		return nil, s.fail(name, fmt.Errorf("decoder output too small (%d values)", len(logits)))
	}
	// First mask channel only; the decoder emits its masks at the fixed
	// input resolution. The tensor is destroyed on return, so copy.
	fixed := append([]float32(nil), logits[:promptInputH*promptInputW]...)

	return &RawOutput{
		Kind:    KindPrompted,
		Logits:  fixed,
		LogitsW: promptInputW,
		LogitsH: promptInputH,
		ImageW:  s.embedW,
		ImageH:  s.embedH,
		ToImage: affineFromMat(inv),
	}, nil
}

func (s *Session) loadWhole(name string) (*wholeSession, error) {
	if ws, ok := s.whole[name]; ok {
		return ws, nil
	}
	path := filepath.Join(s.cfg.ModelDir, name+".onnx")
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model declares no inputs or outputs")
	}
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(path,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	ws := &wholeSession{session: session, inputName: inputs[0].Name, outputName: outputs[0].Name}
	s.whole[name] = ws
	return ws, nil
}

func (s *Session) loadPrompted(name string) error {
	if s.promptedName == name && s.encoder != nil {
		return nil
	}
	s.dropPromptedSessions()

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()

	encPath := filepath.Join(s.cfg.ModelDir, name+".encoder.onnx")
	encIn, encOut, err := ort.GetInputOutputInfo(encPath)
	if err != nil {
		return fmt.Errorf("failed to inspect encoder: %w", err)
	}
	encoder, err := ort.NewDynamicAdvancedSession(encPath,
		[]string{encIn[0].Name}, []string{encOut[0].Name}, opts)
	if err != nil {
		return fmt.Errorf("failed to create encoder session: %w", err)
	}

	decPath := filepath.Join(s.cfg.ModelDir, name+".decoder.onnx")
	decIn, decOut, err := ort.GetInputOutputInfo(decPath)
	if err != nil {
		encoder.Destroy()
		return fmt.Errorf("failed to inspect decoder: %w", err)
	}
	inNames := make([]string, len(decIn))
	for i, in := range decIn {
		inNames[i] = in.Name
	}
	outNames := make([]string, len(decOut))
	for i, out := range decOut {
		outNames[i] = out.Name
	}
	decoder, err := ort.NewDynamicAdvancedSession(decPath, inNames, outNames, opts)
	if err != nil {
		encoder.Destroy()
		return fmt.Errorf("failed to create decoder session: %w", err)
	}

	s.encoder = encoder
	s.decoder = decoder
	s.promptedName = name
	return nil
}

func (s *Session) dropEmbedding() {
	for _, v := range s.embedding {
		if v != nil {
			v.Destroy()
		}
	}
	s.embedding = nil
	s.embedW = 0
	s.embedH = 0
}

func (s *Session) dropPromptedSessions() {
	s.dropEmbedding()
	if s.encoder != nil {
		s.encoder.Destroy()
		s.encoder = nil
	}
	if s.decoder != nil {
		s.decoder.Destroy()
		s.decoder = nil
	}
	s.promptedName = ""
}

// promptScale is the uniform scale fitting the image into the fixed
// prompted-model input frame.
func promptScale(width, height int) float64 {
	return math.Min(float64(promptInputW)/float64(width), float64(promptInputH)/float64(height))
}

// promptTransform builds the forward preprocessing matrix and its inverse.
// The forward matrix scales prompt coordinates into the fixed frame; the
// inverse is carried on the raw output so the adapter can warp the decoder
// logits back to image space.
func promptTransform(width, height int) (forward, inverse *mat.Dense, err error) {
	scale := promptScale(width, height)
	forward = mat.NewDense(3, 3, []float64{
		scale, 0, 0,
		0, scale, 0,
		0, 0, 1,
	})
	inverse = mat.NewDense(3, 3, nil)
	if err := inverse.Inverse(forward); err != nil {
		return nil, nil, fmt.Errorf("failed to invert prompt transform: %w", err)
	}
	return forward, inverse, nil
}

// preprocessWhole resizes the crop to the model's square input and
// normalizes per model family, returning CHW float32 data.
func preprocessWhole(crop *image.NRGBA, name string, target int) []float32 {
	resized := image.NewNRGBA(image.Rect(0, 0, target, target))
	draw.CatmullRom.Scale(resized, resized.Bounds(), crop, crop.Bounds(), draw.Src, nil)

	mean := [3]float32{0.485, 0.456, 0.406}
	std := [3]float32{0.229, 0.224, 0.225}
	lower := strings.ToLower(name)
	if strings.Contains(lower, "isnet") || strings.Contains(lower, "rmbg1_4") {
		mean = [3]float32{0.5, 0.5, 0.5}
		std = [3]float32{1, 1, 1}
	}

	// Scale by the brightest sample, matching the model training recipe.
	var peak float32
	for i := 0; i < target*target; i++ {
		for c := 0; c < 3; c++ {
			if v := float32(resized.Pix[i*4+c]); v > peak {
				peak = v
			}
		}
	}
	if peak == 0 {
		peak = 1
	}

	out := make([]float32, 3*target*target)
	plane := target * target
	for i := 0; i < plane; i++ {
		for c := 0; c < 3; c++ {
			v := float32(resized.Pix[i*4+c]) / peak
			out[c*plane+i] = (v - mean[c]) / std[c]
		}
	}
	return out
}

// postprocessWhole converts raw model output to probabilities in [0,1].
func postprocessWhole(data []float32, name string) []float32 {
	out := make([]float32, len(data))
	if strings.Contains(name, "BiRefNet") {
		// Sigmoid then min-max normalization.
		lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
		for i, v := range data {
			s := float32(1.0 / (1.0 + math.Exp(-float64(v))))
			out[i] = s
			if s < lo {
				lo = s
			}
			if s > hi {
				hi = s
			}
		}
		if hi > lo {
			for i := range out {
				out[i] = (out[i] - lo) / (hi - lo)
			}
		}
		return out
	}
	copy(out, data)
	return out
}

// resizeGrayF32 resizes a float32 probability plane with bilinear
// sampling and quantizes it to 0-255.
func resizeGrayF32(src []float32, srcW, srcH, dstW, dstH int) []uint8 {
	out := make([]uint8, dstW*dstH)
	if srcW == 0 || srcH == 0 || dstW == 0 || dstH == 0 {
		return out
	}
	xRatio := float64(srcW-1) / float64(maxInt(dstW-1, 1))
	yRatio := float64(srcH-1) / float64(maxInt(dstH-1, 1))
	for y := 0; y < dstH; y++ {
		fy := float64(y) * yRatio
		y0 := int(fy)
		y1 := minInt(y0+1, srcH-1)
		wy := float32(fy - float64(y0))
		for x := 0; x < dstW; x++ {
			fx := float64(x) * xRatio
			x0 := int(fx)
			x1 := minInt(x0+1, srcW-1)
			wx := float32(fx - float64(x0))

			top := src[y0*srcW+x0]*(1-wx) + src[y0*srcW+x1]*wx
			bot := src[y1*srcW+x0]*(1-wx) + src[y1*srcW+x1]*wx
			v := top*(1-wy) + bot*wy
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			out[y*dstW+x] = uint8(v*255 + 0.5)
		}
	}
	return out
}

// preprocessPrompted scales the image into the fixed encoder frame,
// padding the remainder with zeros, and returns HWC float32 data plus the
// scaled content dimensions.
func preprocessPrompted(img *image.NRGBA) ([]float32, int, int) {
	b := img.Bounds()
	scale := promptScale(b.Dx(), b.Dy())
	newW := int(float64(b.Dx()) * scale)
	newH := int(float64(b.Dy()) * scale)

	resized := image.NewNRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, b, draw.Src, nil)

	out := make([]float32, promptInputH*promptInputW*3)
	for y := 0; y < newH && y < promptInputH; y++ {
		for x := 0; x < newW && x < promptInputW; x++ {
			i := y*resized.Stride + x*4
			o := (y*promptInputW + x) * 3
			out[o] = float32(resized.Pix[i])
			out[o+1] = float32(resized.Pix[i+1])
			out[o+2] = float32(resized.Pix[i+2])
		}
	}
	return out, newW, newH
}

// affineFromMat collapses a 3x3 homogeneous matrix to its affine part.
func affineFromMat(m *mat.Dense) geometry.AffineTransform {
	return geometry.FromMatrix([2][3]float64{
		{m.At(0, 0), m.At(0, 1), m.At(0, 2)},
		{m.At(1, 0), m.At(1, 1), m.At(1, 2)},
	})
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
