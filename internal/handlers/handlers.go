package handlers

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/Brownie44l1/digit-api/internal/metrics"
	"github.com/Brownie44l1/digit-api/internal/model"
	"github.com/Brownie44l1/digit-api/internal/preprocess"
	"github.com/Brownie44l1/digit-api/internal/upload"
	"github.com/sirupsen/logrus"
)

const (
	msgMissingFile         = "ファイルがありません"
	msgDisallowedExtension = "許可されていないファイル形式です"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Answer  string
	Flashes []string
}

// Limits bounds what a single upload may cost. MaxBytes caps the request
// body, MaxDimension caps the decoded frame width and height.
type Limits struct {
	MaxBytes     int64
	MaxDimension int
}

type Handler struct {
	classifier *model.Classifier
	store      *upload.Store
	imageSize  int
	pixelScale float32
	limits     Limits
}

func NewHandler(classifier *model.Classifier, metadata model.Metadata, store *upload.Store, limits Limits) *Handler {
	return &Handler{
		classifier: classifier,
		store:      store,
		imageSize:  metadata.ImageSize,
		pixelScale: metadata.PixelScale,
		limits:     limits,
	}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.Index)
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/predict", h.Predict)
	mux.Handle("/metrics", metrics.Handler())
	metrics.TrackRoutes("/", "/health", "/predict", "/metrics")
	return mux
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// Index serves the upload form and handles its submissions.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.render(w, pageData{Flashes: popFlashes(w, r)})
	case http.MethodPost:
		h.upload(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxBytes)
	if err := r.ParseMultipartForm(h.limits.MaxBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Uploaded file is too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "Failed to read uploaded file", http.StatusBadRequest)
		return
	}
	if file != nil {
		defer file.Close()
	}

	if err := upload.Validate(header); err != nil {
		h.reject(w, r, err)
		return
	}

	log := logrus.WithFields(logrus.Fields{
		"filename": header.Filename,
		"size":     header.Size,
	})

	path, err := h.store.Save(header.Filename, file)
	if err != nil {
		log.WithError(err).Error("Failed to save upload")
		http.Error(w, "Failed to save uploaded file", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := h.store.Remove(path); err != nil {
			log.WithError(err).Warn("Failed to remove upload")
		}
	}()

	input, err := preprocess.LoadFile(path, h.imageSize, h.pixelScale, h.limits.MaxDimension)
	if errors.Is(err, preprocess.ErrImageTooLarge) {
		metrics.ObserveRejection("image_too_large")
		log.WithError(err).Warn("Upload rejected")
		http.Error(w, "Image dimensions are too large", http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		log.WithError(err).Error("Preprocessing failed")
		http.Error(w, "Failed to process image", http.StatusInternalServerError)
		return
	}

	result, err := h.classifier.Classify(input)
	if err != nil {
		log.WithError(err).Error("Prediction failed")
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		return
	}

	metrics.ObservePrediction(result.Class)
	log.WithFields(logrus.Fields{
		"path":       path,
		"class":      result.Class,
		"confidence": result.Confidence,
	}).Info("Prediction served")

	h.render(w, pageData{Answer: model.Answer(result.Class)})
}

// reject flashes a warning and sends the browser back to the form.
func (h *Handler) reject(w http.ResponseWriter, r *http.Request, err error) {
	msg, reason := msgMissingFile, "missing_file"
	if errors.Is(err, upload.ErrDisallowedExtension) {
		msg, reason = msgDisallowedExtension, "disallowed_extension"
	}
	metrics.ObserveRejection(reason)

	addFlash(w, r, msg)
	http.Redirect(w, r, r.URL.RequestURI(), http.StatusFound)
}

func (h *Handler) render(w http.ResponseWriter, data pageData) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		logrus.WithError(err).Error("Template rendering failed")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// Predict classifies a raw JSON pixel array of image_size*image_size values.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.PredictionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.limits.MaxBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	expectedSize := h.imageSize * h.imageSize
	if len(req.Image) != expectedSize {
		http.Error(w, fmt.Sprintf("Expected %d values, got %d", expectedSize, len(req.Image)),
			http.StatusBadRequest)
		return
	}

	result, err := h.classifier.Classify(req.Image)
	if err != nil {
		logrus.WithError(err).Error("Prediction failed")
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		return
	}
	metrics.ObservePrediction(result.Class)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
