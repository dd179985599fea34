// Package app provides application lifecycle management, configuration, and events.
package app

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"cutout-studio/internal/ai"
	"cutout-studio/internal/config"
	"cutout-studio/internal/document"
	"cutout-studio/internal/render"
	"cutout-studio/pkg/colorutil"
)

// EventType identifies different application events.
type EventType int

const (
	EventImageLoaded EventType = iota
	EventMaskChanged
	EventPreviewChanged
	EventViewChanged
	EventStatus
	EventInferenceStarted
	EventInferenceFinished
	EventSettingsChanged
)

// EventListener receives event data.
type EventListener func(data interface{})

// State holds the application state: the open document, the model
// session and worker, settings, and event listeners. The document is
// guarded by docMu: the fyne event goroutine and the worker-poll ticker
// both reach it, and every mutation must run to completion before the
// next one starts. Use ModifyDoc/WithDoc instead of touching Doc
// directly, and emit events only after the lock is released.
type State struct {
	mu    sync.RWMutex
	docMu sync.Mutex

	Doc      *document.Document
	Settings *config.Settings

	Session *ai.Session
	Worker  *ai.Worker
	Catalog ai.Catalog

	WholeModel  string
	PromptModel string

	// pendingGen/pendingName identify the in-flight inference so a stale
	// or failed result can be reported meaningfully.
	pendingGen  uint64
	pendingName string

	listeners map[EventType][]EventListener
}

// NewState creates the application state, loading settings and scanning
// the model directory. A missing onnxruntime library surfaces on first
// inference, not at startup.
func NewState(settings *config.Settings) *State {
	s := &State{
		Settings:  settings,
		Worker:    ai.NewWorker(),
		Catalog:   ai.DiscoverModels(settings.ModelDir),
		listeners: make(map[EventType][]EventListener),
	}
	if len(s.Catalog.WholeImage) > 0 {
		s.WholeModel = s.Catalog.WholeImage[0]
	}
	if settings.LastWholeModel != "" && contains(s.Catalog.WholeImage, settings.LastWholeModel) {
		s.WholeModel = settings.LastWholeModel
	}
	if len(s.Catalog.Prompted) > 0 {
		s.PromptModel = s.Catalog.Prompted[0]
	}
	if settings.LastPromptModel != "" && contains(s.Catalog.Prompted, settings.LastPromptModel) {
		s.PromptModel = settings.LastPromptModel
	}
	return s
}

// On registers an event listener.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit notifies all listeners of an event.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	ls := s.listeners[event]
	s.mu.RUnlock()
	for _, l := range ls {
		l(data)
	}
}

// Status emits a status-bar message.
func (s *State) Status(format string, args ...interface{}) {
	s.Emit(EventStatus, fmt.Sprintf(format, args...))
}

// ModifyDoc runs one document command with exclusive access. The
// callback must not emit events or call back into State; deliver
// notifications after it returns.
func (s *State) ModifyDoc(fn func(*document.Document) document.Status) document.Status {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	if s.Doc == nil {
		return document.Status{Message: "No image loaded"}
	}
	return fn(s.Doc)
}

// WithDoc runs fn with exclusive access to the open document and
// reports whether a document was open. Same restrictions as ModifyDoc.
func (s *State) WithDoc(fn func(*document.Document)) bool {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	if s.Doc == nil {
		return false
	}
	fn(s.Doc)
	return true
}

// LoadImage decodes an image file and opens a fresh document on it.
func (s *State) LoadImage(path string, canvasW, canvasH int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	nrgba := toNRGBA(img)

	doc := document.New(nrgba, path, canvasW, canvasH)
	doc.SoftenRadius = s.Settings.SoftenRadius
	doc.BGMode = render.BackgroundMode(s.Settings.BGMode)
	if c, err := colorutil.ParseHex(s.Settings.BGCustomColor); err == nil {
		doc.BGColor = c
	}
	doc.Shadow = render.ShadowParams{
		Enabled: s.Settings.EnableShadow,
		Opacity: s.Settings.ShadowOpacity,
		Radius:  s.Settings.ShadowRadius,
		OffsetX: s.Settings.ShadowX,
		OffsetY: s.Settings.ShadowY,
	}

	s.docMu.Lock()
	s.Doc = doc
	s.docMu.Unlock()

	if s.Session != nil {
		s.Session.InvalidateEmbedding()
	}
	s.Emit(EventImageLoaded, path)
	return nil
}

// ensureSession lazily creates the ONNX session.
func (s *State) ensureSession() error {
	if s.Session != nil {
		return nil
	}
	session, err := ai.NewSession(ai.Config{ModelDir: s.Settings.ModelDir})
	if err != nil {
		return err
	}
	s.Session = session
	return nil
}

// RunAutoDetect starts a whole-image inference over the current crop on
// the worker. The crop snapshot is taken now; the result is applied by
// PollWorker.
func (s *State) RunAutoDetect() document.Status {
	if s.WholeModel == "" {
		return document.Status{Message: "No whole image models found"}
	}
	if err := s.ensureSession(); err != nil {
		return document.Status{Message: fmt.Sprintf("Model runtime unavailable: %v", err)}
	}

	// A whole-image run abandons prompted state and paint mode. The crop
	// snapshot is taken under the lock; the closure only sees the copy.
	var crop *image.NRGBA
	if !s.WithDoc(func(d *document.Document) {
		d.DropPreview()
		d.PaintMode = false
		crop = d.SourceCrop()
	}) {
		return document.Status{Message: "No image loaded"}
	}

	name := s.WholeModel
	session := s.Session
	gen, err := s.Worker.Submit(func() (*ai.RawOutput, error) {
		return session.RunWholeImage(name, crop)
	})
	if err != nil {
		return document.Status{Message: "Inference already running"}
	}
	s.setPending(gen, name)
	s.Emit(EventInferenceStarted, name)
	return document.Status{OK: true, Message: fmt.Sprintf("Running %s", name)}
}

// RunPrompted starts a prompted inference from the document's current
// point and box prompts. The embedding is computed on the worker when
// missing or stale.
func (s *State) RunPrompted() document.Status {
	if s.PromptModel == "" {
		return document.Status{Message: "No prompt models found"}
	}
	if err := s.ensureSession(); err != nil {
		return document.Status{Message: fmt.Sprintf("Model runtime unavailable: %v", err)}
	}

	var (
		points []ai.Point
		src    *image.NRGBA
		stale  bool
	)
	if !s.WithDoc(func(d *document.Document) {
		points = append([]ai.Point(nil), d.Points...)
		src = d.Source
		stale = d.EmbeddingStale()
	}) {
		return document.Status{Message: "No image loaded"}
	}
	if len(points) == 0 {
		return document.Status{Message: "Click the subject first"}
	}

	name := s.PromptModel
	session := s.Session
	gen, err := s.Worker.Submit(func() (*ai.RawOutput, error) {
		if stale {
			session.InvalidateEmbedding()
		}
		if err := session.EnsureEmbedding(name, src); err != nil {
			return nil, err
		}
		return session.RunPrompted(name, points)
	})
	if err != nil {
		return document.Status{Message: "Inference already running"}
	}
	s.WithDoc(func(d *document.Document) { d.MarkEmbeddingFresh() })
	s.setPending(gen, name)
	s.Emit(EventInferenceStarted, name)
	return document.Status{OK: true, Message: fmt.Sprintf("Running %s", name)}
}

// setPending records the in-flight request identity under the document
// lock so PollWorker can compare against it from its own goroutine.
func (s *State) setPending(gen uint64, name string) {
	s.docMu.Lock()
	s.pendingGen = gen
	s.pendingName = name
	s.docMu.Unlock()
}

// PollWorker checks for a finished inference and applies it. Stale
// results superseded by a newer request are dropped, never applied.
// Safe to call from the poll ticker goroutine: the document write runs
// under the same lock that serializes every UI-driven mutation.
func (s *State) PollWorker() {
	r, ok := s.Worker.TryResult()
	if !ok {
		return
	}

	s.docMu.Lock()
	if r.Gen != s.Worker.Generation() || r.Gen != s.pendingGen {
		s.docMu.Unlock()
		return
	}
	name := s.pendingName
	var applyErr error
	applied := false
	if r.Err == nil && s.Doc != nil {
		applyErr = s.Doc.SetRawOutput(r.Output)
		applied = applyErr == nil
	}
	s.docMu.Unlock()

	s.Emit(EventInferenceFinished, name)
	switch {
	case r.Err != nil:
		s.Status("Error running model: %v", r.Err)
	case applyErr != nil:
		s.Status("Failed to apply model output: %v", applyErr)
	case applied:
		s.Emit(EventPreviewChanged, nil)
		s.Status("Inference complete")
	}
}

// RetryModel clears the unusable mark after a model failure.
func (s *State) RetryModel(name string) {
	if s.Session != nil {
		s.Session.Retry(name)
	}
	s.Status("Model %s will be retried", name)
}

// SaveSettings persists current document settings back to disk.
func (s *State) SaveSettings() error {
	s.WithDoc(func(d *document.Document) {
		s.Settings.BGMode = string(d.BGMode)
		s.Settings.BGCustomColor = colorutil.ToHex(d.BGColor)
		s.Settings.SoftenRadius = d.SoftenRadius
		s.Settings.EnableShadow = d.Shadow.Enabled
		s.Settings.ShadowOpacity = d.Shadow.Opacity
		s.Settings.ShadowRadius = d.Shadow.Radius
		s.Settings.ShadowX = d.Shadow.OffsetX
		s.Settings.ShadowY = d.Shadow.OffsetY
	})
	s.Settings.LastWholeModel = s.WholeModel
	s.Settings.LastPromptModel = s.PromptModel
	return s.Settings.Save()
}

// Close releases the model session.
func (s *State) Close() {
	if s.Session != nil {
		s.Session.Close()
		s.Session = nil
	}
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
