package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"az-morph/api/internal/llm"
	"az-morph/api/internal/morph"
	"az-morph/api/internal/store"
)

const (
	analyzeTimeout = 180 * time.Second
	maxJSONBody    = 1 << 20 // 1 MiB
	maxUpload      = 4 << 20 // 4 MiB
)

type Handle struct {
	engs *llm.Engines
	an   *morph.Analyzer
	db   *store.DB // может быть nil: хранилище не настроено
	log  *zap.Logger
}

func New(engs *llm.Engines, an *morph.Analyzer, db *store.DB, log *zap.Logger) *Handle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handle{
		engs: engs,
		an:   an,
		db:   db,
		log:  log,
	}
}

// Register вешает все маршруты на mux. static может быть nil.
func (h *Handle) Register(mux *http.ServeMux, static http.Handler) {
	mux.HandleFunc("/analyze", h.Analyze)
	mux.HandleFunc("/analyze/single", h.AnalyzeSingle)
	mux.HandleFunc("/analyze/batch", h.AnalyzeBatch)
	mux.HandleFunc("/analyze/upload", h.AnalyzeUpload)
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/healthz", h.Healthz)
	if static != nil {
		mux.Handle("/static/", http.StripPrefix("/static/", static))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				writeError(w, http.StatusNotFound, "Not Found")
				return
			}
			http.Redirect(w, r, "/static/", http.StatusFound)
		})
	}
}

// engine выбирает провайдера по заголовку llm-name и ключу из заголовка api-key.
func (h *Handle) engine(w http.ResponseWriter, r *http.Request) (llm.Engine, bool) {
	key := r.Header.Get("api-key")
	if key == "" {
		key = r.Header.Get("X-API-Key")
	}
	eng, err := h.engs.GetEngine(r.Header.Get("llm-name"), key)
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		writeError(w, http.StatusUnauthorized, "Missing api-key header.")
		return nil, false
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return eng, true
}

func (h *Handle) analyzeWord(w http.ResponseWriter, r *http.Request, eng llm.Engine, word string) {
	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()

	out, err := h.an.AnalyzeWord(ctx, eng, word)
	if err != nil {
		h.analysisFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handle) analyzeWords(w http.ResponseWriter, r *http.Request, eng llm.Engine, words []string) {
	ctx, cancel := context.WithTimeout(r.Context(), analyzeTimeout)
	defer cancel()

	out, err := h.an.AnalyzeWords(ctx, eng, words)
	if err != nil {
		h.analysisFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handle) analysisFailed(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("analysis failed", zap.String("path", r.URL.Path), zap.Error(err))
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusGatewayTimeout, "analysis error: "+err.Error())
		return
	}
	writeError(w, http.StatusBadGateway, "analysis error: "+err.Error())
}

func postOnly(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Detail: strings.TrimSpace(msg)})
}
