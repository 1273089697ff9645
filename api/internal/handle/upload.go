package handle

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"az-morph/api/internal/util"
)

// AnalyzeUpload разбирает текстовый файл (поле "file"): одно слово на строку, пустые строки пропускаются.
func (h *Handle) AnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+(1<<10))
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "bad multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "field 'file' is required")
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read file: "+err.Error())
		return
	}
	if len(content) > maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	if !util.SniffText(content) {
		writeError(w, http.StatusBadRequest, "File must be UTF-8 text.")
		return
	}

	words := util.Words(string(content))
	if len(words) == 0 {
		writeError(w, http.StatusBadRequest, "No words found in file.")
		return
	}
	h.log.Info("upload", zap.String("filename", hdr.Filename), zap.Int("words", len(words)))

	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	h.analyzeWords(w, r, eng, words)
}
