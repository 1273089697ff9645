package batch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"az-morph/api/internal/morph"
	"az-morph/api/internal/store"
)

type scriptedEngine struct {
	calls int
	// respond по номеру вызова (с нуля); nil значит валидный разбор всех слов
	respond func(call int, words []string) (string, error)
}

func (e *scriptedEngine) GetModel() string { return "fake-model" }

func (e *scriptedEngine) Generate(_ context.Context, _, user string) (string, error) {
	var words []string
	if err := json.Unmarshal([]byte(user[strings.LastIndex(user, "\n")+1:]), &words); err != nil {
		return "", err
	}
	call := e.calls
	e.calls++
	if e.respond != nil {
		return e.respond(call, words)
	}
	return validFor(words), nil
}

func validFor(words []string) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, fmt.Sprintf(
			`{"word": %q, "pos": "İsim", "type": "Sadə", "segments": [{"element": %q, "type": "Kök"}], "usage": "Ümumi"}`, w, w))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

type fixture struct {
	db      *store.DB
	results bytes.Buffer
	errors  bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return &fixture{db: db}
}

func (f *fixture) runner(eng morph.Engine, batchSize, limit int) *Runner {
	an := morph.NewAnalyzer(morph.Validator{}, nil)
	an.ChunkSize = 0
	return &Runner{
		Analyzer:  an,
		Engine:    eng,
		DB:        f.db,
		Morph:     store.NewMorphologyRepo(f.db),
		Progress:  store.NewProgressRepo(f.db),
		BatchSize: batchSize,
		Limit:     limit,
		Results:   &f.results,
		Errors:    &f.errors,
		RunID:     "run-1",
	}
}

func (f *fixture) checkpoint(t *testing.T) (int, bool) {
	t.Helper()
	idx, ok, err := store.NewProgressRepo(f.db).Get(context.Background(), f.db)
	require.NoError(t, err)
	return idx, ok
}

func (f *fixture) stored(t *testing.T) int64 {
	t.Helper()
	n, err := store.NewMorphologyRepo(f.db).Count(context.Background())
	require.NoError(t, err)
	return n
}

func lines(b *bytes.Buffer) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(b.Bytes()))
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out
}

var fruits = []string{"alma", "armud", "heyva", "nar", "üzüm"}

func TestRun_AllBatches(t *testing.T) {
	f := newFixture(t)
	eng := &scriptedEngine{}

	st, err := f.runner(eng, 2, 0).Run(context.Background(), fruits)
	require.NoError(t, err)

	assert.Equal(t, 3, eng.calls)
	assert.Equal(t, Stats{Start: 0, Next: 6, Total: 5, Batches: 3, Entries: 5, Inserted: 5}, st)
	assert.EqualValues(t, 5, f.stored(t))

	idx, ok := f.checkpoint(t)
	assert.True(t, ok)
	assert.Equal(t, 6, idx)

	res := lines(&f.results)
	require.Len(t, res, 5)
	var first morph.Analysis
	require.NoError(t, json.Unmarshal([]byte(res[0]), &first))
	assert.Equal(t, "alma", first.Word)
	assert.Empty(t, f.errors.String())
}

func TestRun_ResumesFromCheckpoint(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, store.NewProgressRepo(f.db).Set(context.Background(), f.db, 4))

	eng := &scriptedEngine{}
	st, err := f.runner(eng, 2, 0).Run(context.Background(), fruits)
	require.NoError(t, err)

	assert.Equal(t, 1, eng.calls)
	assert.Equal(t, 4, st.Start)
	assert.Equal(t, 6, st.Next)
	assert.EqualValues(t, 1, f.stored(t))

	// повторный запуск ничего не делает
	st, err = f.runner(eng, 2, 0).Run(context.Background(), fruits)
	require.NoError(t, err)
	assert.Equal(t, 1, eng.calls)
	assert.Zero(t, st.Batches)
}

func TestRun_InitialisesCheckpoint(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner(&scriptedEngine{}, 2, 0).Run(context.Background(), nil)
	require.NoError(t, err)

	idx, ok := f.checkpoint(t)
	assert.True(t, ok)
	assert.Zero(t, idx)
}

func TestRun_Limit(t *testing.T) {
	f := newFixture(t)
	eng := &scriptedEngine{}

	st, err := f.runner(eng, 2, 3).Run(context.Background(), fruits)
	require.NoError(t, err)

	// порции со смещениями 0 и 2 начинаются до лимита, 4 уже нет
	assert.Equal(t, 2, eng.calls)
	assert.Equal(t, 4, st.Next)
	assert.EqualValues(t, 4, f.stored(t))
}

func TestRun_FailuresAreLoggedAndSkipped(t *testing.T) {
	f := newFixture(t)
	eng := &scriptedEngine{respond: func(call int, words []string) (string, error) {
		if call == 1 {
			return "the model refused", nil
		}
		return validFor(words), nil
	}}

	st, err := f.runner(eng, 2, 0).Run(context.Background(), fruits)
	require.NoError(t, err)

	assert.Equal(t, 1, st.Failures)
	assert.EqualValues(t, 3, f.stored(t))
	idx, _ := f.checkpoint(t)
	assert.Equal(t, 6, idx, "a failed batch still advances the checkpoint")

	errLines := lines(&f.errors)
	require.Len(t, errLines, 1)
	var rec struct {
		RunID   string        `json:"run_id"`
		Offset  int           `json:"offset"`
		Words   []string      `json:"words"`
		Failure morph.Failure `json:"failure"`
	}
	require.NoError(t, json.Unmarshal([]byte(errLines[0]), &rec))
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, 2, rec.Offset)
	assert.Equal(t, []string{"heyva", "nar"}, rec.Words)
	assert.Equal(t, "No JSON array in LLM response", rec.Failure.Error)

	// ошибка попадает и в общий файл результатов: 2 + 1 + 1
	assert.Len(t, lines(&f.results), 4)
}

func TestRun_EngineErrorKeepsCheckpoint(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("429 too many requests")
	eng := &scriptedEngine{respond: func(call int, words []string) (string, error) {
		if call == 1 {
			return "", boom
		}
		return validFor(words), nil
	}}

	st, err := f.runner(eng, 2, 0).Run(context.Background(), fruits)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, st.Next)

	idx, _ := f.checkpoint(t)
	assert.Equal(t, 2, idx)
	assert.EqualValues(t, 2, f.stored(t))
}

func TestRun_BadBatchSize(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner(&scriptedEngine{}, 0, 0).Run(context.Background(), fruits)
	assert.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := &scriptedEngine{}
	_, err := f.runner(eng, 2, 0).Run(ctx, fruits)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, eng.calls)
}

func TestReadWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffalma\r\n\n  armud  \n\t\nnar"), 0o644))

	words, err := ReadWords(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alma", "armud", "nar"}, words)

	_, err = ReadWords(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
