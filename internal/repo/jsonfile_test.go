package repo

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/daily-verse/internal/domain"
)

func tempFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if content != "" {
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return p
}

func TestJSONFile_ReadAll_AbsentBlankAndNull(t *testing.T) {
	ctx := context.Background()

	cases := map[string]string{
		"absent":     "",
		"whitespace": "  \n\t  \n",
		"null":       "null",
		"empty":      "[]",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := tempFile(t, "requests.json", content)
			if name == "whitespace" {
				// tempFile skips empty content only; write explicitly.
				require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			}
			got, err := NewJSONFile[domain.PrayerRequest](path).ReadAll(ctx)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestJSONFile_ReadAll_MalformedIsParseError(t *testing.T) {
	path := tempFile(t, "bible.json", `[{"text": "unterminated"`)

	_, err := NewJSONFile[domain.Verse](path).ReadAll(context.Background())
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
	assert.Contains(t, pe.Path, "bible.json")
	assert.Contains(t, err.Error(), "parse")
}

func TestJSONFile_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := tempFile(t, "requests.json", "")
	store := NewJSONFile[domain.PrayerRequest](path)

	want := []domain.PrayerRequest{
		{Name: "Marie", Phone: "0600000000", Prayer: "santé", SubmittedAt: "2024-05-01T10:00:00.123Z"},
		{Name: "Paul, \"le jeune\"", Phone: "", Prayer: "ligne 1\nligne 2", SubmittedAt: "2024-05-01T10:01:00Z"},
		{Name: "Anne", Extra: map[string]json.RawMessage{"church": json.RawMessage(`"Lyon"`)}},
	}
	require.NoError(t, store.WriteAll(ctx, want))

	got, err := store.ReadAll(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	// Opaque verses survive unchanged as well.
	vpath := tempFile(t, "bible.json", "")
	verses := NewJSONFile[domain.Verse](vpath)
	wantV := []domain.Verse{{"reference": "Jean 3:16", "text": "Car Dieu a tant aimé le monde"}}
	require.NoError(t, verses.WriteAll(ctx, wantV))
	gotV, err := verses.ReadAll(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(wantV, gotV); diff != "" {
		t.Fatalf("verse round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONFile_WriteAll_NilWritesEmptyArray(t *testing.T) {
	path := tempFile(t, "requests.json", "")
	require.NoError(t, NewJSONFile[domain.PrayerRequest](path).WriteAll(context.Background(), nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestJSONFile_WriteAll_FailureIsStoreWriteError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "requests.json")

	err := NewJSONFile[domain.PrayerRequest](path).WriteAll(context.Background(), []domain.PrayerRequest{{Name: "x"}})
	require.Error(t, err)

	var we *StoreWriteError
	require.True(t, errors.As(err, &we), "want *StoreWriteError, got %T", err)
	assert.Contains(t, we.Error(), "requests.json")
}

func TestJSONFile_WriteAll_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requests.json")
	store := NewJSONFile[domain.PrayerRequest](path)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.WriteAll(context.Background(), []domain.PrayerRequest{{Name: "n"}}))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "requests.json", entries[0].Name())
}

func TestJSONFile_Update_ConcurrentAppendsAreNotLost(t *testing.T) {
	ctx := context.Background()
	path := tempFile(t, "requests.json", "[]")

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// A fresh handle per goroutine still shares the per-path lock.
			store := NewJSONFile[domain.PrayerRequest](path)
			err := store.Update(ctx, func(items []domain.PrayerRequest) ([]domain.PrayerRequest, error) {
				return append(items, domain.PrayerRequest{Name: "n"}), nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := NewJSONFile[domain.PrayerRequest](path).ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, n)
}

func TestJSONFile_Update_FnErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	path := tempFile(t, "requests.json", `[{"name":"a","phone":"","prayer":"p","submitted_at":"2024-05-01T10:00:00Z"}]`)
	store := NewJSONFile[domain.PrayerRequest](path)

	boom := errors.New("boom")
	err := store.Update(ctx, func(items []domain.PrayerRequest) ([]domain.PrayerRequest, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Name)
}

func TestJSONFile_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewJSONFile[domain.PrayerRequest](tempFile(t, "requests.json", ""))

	_, err := store.ReadAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.WriteAll(ctx, nil), context.Canceled)
	assert.ErrorIs(t, store.Update(ctx, nil), context.Canceled)
}

func TestMemory_CopiesAndInjectedErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(domain.PrayerRequest{Name: "a"})

	got, err := m.ReadAll(ctx)
	require.NoError(t, err)
	got[0].Name = "mutated"

	again, _ := m.ReadAll(ctx)
	assert.Equal(t, "a", again[0].Name, "ReadAll must return a copy")

	m.WriteErr = errors.New("disk full")
	err = m.Update(ctx, func(items []domain.PrayerRequest) ([]domain.PrayerRequest, error) {
		return append(items, domain.PrayerRequest{Name: "b"}), nil
	})
	var we *StoreWriteError
	require.True(t, errors.As(err, &we))

	after, _ := m.ReadAll(ctx)
	assert.Len(t, after, 1)
}
