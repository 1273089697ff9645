package handle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"az-morph/api/internal/llm"
	"az-morph/api/internal/morph"
)

type fakeEngine struct {
	name string
	err  error
}

func (f *fakeEngine) Name() string     { return f.name }
func (f *fakeEngine) GetModel() string { return f.name + "-test" }

func (f *fakeEngine) Generate(_ context.Context, _, user string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	var words []string
	if err := json.Unmarshal([]byte(user[strings.LastIndex(user, "\n")+1:]), &words); err != nil {
		return "", err
	}
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, fmt.Sprintf(
			`{"word": %q, "pos": "İsim", "type": "Sadə", "segments": [{"element": %q, "type": "Kök"}], "usage": "Ümumi", "gloss": %q}`,
			w, w, f.name))
	}
	return "[" + strings.Join(parts, ",") + "]", nil
}

type testEnv struct {
	srv *httptest.Server

	mu      sync.Mutex
	lastKey string
	engErr  error
}

func (e *testEnv) setEngineErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.engErr = err
}

func (e *testEnv) key() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastKey
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{}
	factory := func(name string) llm.Factory {
		return func(apiKey, model string) llm.Engine {
			env.mu.Lock()
			defer env.mu.Unlock()
			env.lastKey = apiKey
			return &fakeEngine{name: name, err: env.engErr}
		}
	}
	engs := &llm.Engines{Default: "gemini", Gemini: factory("gemini"), OpenAI: factory("gpt")}

	h := New(engs, morph.NewAnalyzer(morph.Validator{}, nil), nil, nil)
	mux := http.NewServeMux()
	static := http.FileServer(http.FS(fstest.MapFS{"index.html": {Data: []byte("<html>ui</html>")}}))
	h.Register(mux, static)

	env.srv = httptest.NewServer(mux)
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	cl := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := cl.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

var withKey = map[string]string{"api-key": "client-key"}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func detail(t *testing.T, resp *http.Response) string {
	return decode[errorResponse](t, resp).Detail
}

func TestAnalyzeSingle(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/analyze/single", `{"word": " kitab "}`, withKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	a := decode[morph.Analysis](t, resp)
	assert.Equal(t, "kitab", a.Word)
	assert.Equal(t, "client-key", env.key())
}

func TestAnalyzeSingle_Errors(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/analyze/single", `{"word": "kitab"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Missing api-key header.", detail(t, resp))

	resp = env.do(t, http.MethodPost, "/analyze/single", `{"word": ""}`, withKey)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "field 'word' is required", detail(t, resp))

	resp = env.do(t, http.MethodPost, "/analyze/single", `{"word": `, withKey)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.True(t, strings.HasPrefix(detail(t, resp), "bad json: "))

	resp = env.do(t, http.MethodGet, "/analyze/single", "", withKey)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/analyze/single", `{"word": "kitab"}`,
		map[string]string{"api-key": "k", "llm-name": "claude"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, llm.ErrUnknownEngine.Error(), detail(t, resp))
}

func TestAnalyzeBatch(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/analyze/batch", `{"words": ["alma", " ", "armud"]}`,
		map[string]string{"X-API-Key": "alt-key", "llm-name": "gpt"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[[]morph.Analysis](t, resp)
	require.Len(t, out, 2)
	assert.Equal(t, "alma", out[0].Word)
	assert.Equal(t, "armud", out[1].Word)
	require.NotNil(t, out[0].Gloss)
	assert.Equal(t, "gpt", *out[0].Gloss)
	assert.Equal(t, "alt-key", env.key())

	resp = env.do(t, http.MethodPost, "/analyze/batch", `{"words": []}`, withKey)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "field 'words' must be a non-empty list", detail(t, resp))
}

func TestAnalyze_QueryAndBody(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/analyze?word=alma", "", withKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alma", decode[morph.Analysis](t, resp).Word)

	resp = env.do(t, http.MethodPost, "/analyze?words=alma&words=nar", "", withKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]morph.Analysis](t, resp), 2)

	resp = env.do(t, http.MethodPost, "/analyze", `{"word": "heyva"}`, withKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "heyva", decode[morph.Analysis](t, resp).Word)

	resp = env.do(t, http.MethodPost, "/analyze", `{"words": ["a", "b", "c"]}`, withKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]morph.Analysis](t, resp), 3)

	// query важнее тела
	resp = env.do(t, http.MethodPost, "/analyze?word=alma", `{"words": ["a", "b"]}`, withKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alma", decode[morph.Analysis](t, resp).Word)
}

func TestAnalyze_BadInput(t *testing.T) {
	env := newTestEnv(t)

	// проверка входа идёт раньше проверки ключа
	resp := env.do(t, http.MethodPost, "/analyze", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Provide either 'word' or 'words' as query or in JSON body.", detail(t, resp))

	resp = env.do(t, http.MethodPost, "/analyze", `{"text": "alma"}`, withKey)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request body.", detail(t, resp))
}

func TestAnalyze_EngineFailure(t *testing.T) {
	env := newTestEnv(t)
	env.setEngineErr(errors.New("upstream 500"))

	resp := env.do(t, http.MethodPost, "/analyze/single", `{"word": "alma"}`, withKey)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "analysis error: upstream 500", detail(t, resp))

	env.setEngineErr(fmt.Errorf("gemini generate: %w", context.DeadlineExceeded))
	resp = env.do(t, http.MethodPost, "/analyze/single", `{"word": "alma"}`, withKey)
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
}

func upload(t *testing.T, env *testEnv, field, filename string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/analyze/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("api-key", "client-key")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestAnalyzeUpload(t *testing.T) {
	env := newTestEnv(t)

	resp := upload(t, env, "file", "words.txt", []byte("alma\r\n\n armud \nnar\n"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[[]morph.Analysis](t, resp)
	require.Len(t, out, 3)
	assert.Equal(t, "armud", out[1].Word)

	resp = upload(t, env, "file", "pic.png", []byte("\x89PNG\r\n\x1a\n\x00\x00"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "File must be UTF-8 text.", detail(t, resp))

	resp = upload(t, env, "file", "empty.txt", []byte("\n  \n"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No words found in file.", detail(t, resp))

	resp = upload(t, env, "doc", "words.txt", []byte("alma"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "field 'file' is required", detail(t, resp))
}

func TestAnalyzeUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t)

	// чуть больше лимита: multipart ещё влезает, сам файл уже нет
	resp := upload(t, env, "file", "big.txt", bytes.Repeat([]byte("a"), maxUpload+10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "file too large", detail(t, resp))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))

	resp = env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStaticAndFallback(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/static/", resp.Header.Get("Location"))

	resp = env.do(t, http.MethodGet, "/static/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not Found", detail(t, resp))
}
