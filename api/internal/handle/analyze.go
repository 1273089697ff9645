package handle

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"az-morph/api/internal/util"
)

type SingleWordRequest struct {
	Word string `json:"word"`
}

type BatchWordsRequest struct {
	Words []string `json:"words"`
}

// analyzeBody: тело /analyze, либо {"word": ...}, либо {"words": [...]}.
type analyzeBody struct {
	Word  *string  `json:"word"`
	Words []string `json:"words"`
}

// Analyze принимает слово(а) из query (?word=, ?words=&words=) или из JSON-тела.
// Query важнее тела; одно слово отдаётся объектом, список массивом.
func (h *Handle) Analyze(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}

	q := r.URL.Query()
	word := strings.TrimSpace(q.Get("word"))
	words := util.CleanWords(q["words"])

	var body *analyzeBody
	if word == "" && len(words) == 0 {
		b, err := decodeBody[analyzeBody](w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		body = b
	}
	if word == "" && len(words) == 0 && body == nil {
		writeError(w, http.StatusBadRequest, "Provide either 'word' or 'words' as query or in JSON body.")
		return
	}

	if body != nil {
		switch {
		case body.Word != nil && strings.TrimSpace(*body.Word) != "":
			word = strings.TrimSpace(*body.Word)
		case len(util.CleanWords(body.Words)) > 0:
			words = body.Words
		default:
			writeError(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
	}

	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	if word != "" {
		h.analyzeWord(w, r, eng, word)
		return
	}
	h.analyzeWords(w, r, eng, words)
}

func (h *Handle) AnalyzeSingle(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}
	req, err := decodeBody[SingleWordRequest](w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	if req == nil || strings.TrimSpace(req.Word) == "" {
		writeError(w, http.StatusBadRequest, "field 'word' is required")
		return
	}
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	h.analyzeWord(w, r, eng, strings.TrimSpace(req.Word))
}

func (h *Handle) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	if !postOnly(w, r) {
		return
	}
	req, err := decodeBody[BatchWordsRequest](w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	if req == nil || len(util.CleanWords(req.Words)) == 0 {
		writeError(w, http.StatusBadRequest, "field 'words' must be a non-empty list")
		return
	}
	eng, ok := h.engine(w, r)
	if !ok {
		return
	}
	h.analyzeWords(w, r, eng, req.Words)
}

// decodeBody читает JSON-тело с ограничением размера. Пустое тело даёт (nil, nil).
func decodeBody[T any](w http.ResponseWriter, r *http.Request) (*T, error) {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	var v T
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}
