package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, ConfigFile), store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_NestedDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b")

	store, err := NewConfigStore(nested)
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	assert.Equal(t, filepath.Join(nested, ConfigFile), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_CorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFile), []byte("not toml {{[["), 0600))

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_ReadsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[llm]
model = "llama3:latest"
temperature = 0.2
timeout = "90s"
json_mode = true

[retrieval]
top_k = 5
max_distance = 1

[server]
cors_origins = ["http://localhost:3000", "https://app.example.com"]
request_timeout = 45
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFile), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "llama3:latest", store.GetString("llm.model"))
	assert.InDelta(t, 0.2, store.GetFloat("llm.temperature"), 1e-9)
	assert.Equal(t, 90*time.Second, store.GetDuration("llm.timeout"))
	assert.True(t, store.GetBool("llm.json_mode"))
	assert.Equal(t, 5, store.GetInt("retrieval.top_k"))
	assert.InDelta(t, 1.0, store.GetFloat("retrieval.max_distance"), 1e-9)
	assert.Equal(t, 45*time.Second, store.GetDuration("server.request_timeout"))
	assert.Equal(t,
		[]string{"http://localhost:3000", "https://app.example.com"},
		store.GetStringSlice("server.cors_origins"))
	assert.Equal(t, []string{
		"llm.json_mode", "llm.model", "llm.temperature", "llm.timeout",
		"retrieval.max_distance", "retrieval.top_k",
		"server.cors_origins", "server.request_timeout",
	}, store.Keys())
}

func TestConfigStore_TypedGettersRejectWrongTypes(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("a.string", "hello"))
	require.NoError(t, store.Set("a.int", 42))
	require.NoError(t, store.Set("a.bad_duration", "soon"))

	assert.Equal(t, "", store.GetString("a.int"))
	assert.Equal(t, 0, store.GetInt("a.string"))
	assert.False(t, store.GetBool("a.string"))
	assert.Zero(t, store.GetFloat("a.string"))
	assert.Zero(t, store.GetDuration("a.bad_duration"))
	assert.Nil(t, store.GetStringSlice("a.int"))

	assert.Equal(t, "", store.GetString("missing"))
	assert.Equal(t, 0, store.GetInt("missing"))
	assert.Zero(t, store.GetFloat("missing"))
	assert.Zero(t, store.GetDuration("missing"))
	val, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_StringSliceFromCommaList(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("server.cors_origins", " a.example , ,b.example"))

	assert.Equal(t, []string{"a.example", "b.example"}, store.GetStringSlice("server.cors_origins"))
}

func TestConfigStore_PersistsAsTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.model", "mistral"))
	require.NoError(t, store.Set("llm.requests_per_second", 2.5))
	require.NoError(t, store.Set("store.backend", "sqlite"))
	require.NoError(t, store.Set("chunking.max_chars", 800))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[llm]")
	assert.Contains(t, string(data), "[store]")
	assert.NotContains(t, string(data), `"llm.model"`)

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "mistral", reloaded.GetString("llm.model"))
	assert.InDelta(t, 2.5, reloaded.GetFloat("llm.requests_per_second"), 1e-9)
	assert.Equal(t, "sqlite", reloaded.GetString("store.backend"))
	assert.Equal(t, 800, reloaded.GetInt("chunking.max_chars"))
}

func TestConfigStore_SetNilRemovesKey(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("embedding.api_key", "sk-test"))

	require.NoError(t, store.Set("embedding.api_key", nil))

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	_, ok := reloaded.Get("embedding.api_key")
	assert.False(t, ok)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("embedding.api_key", "sk-test"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_ConflictingKeys(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("llm", "flat"))

	err = store.Set("llm.model", "mistral")

	assert.ErrorContains(t, err, "conflicts")
}

func TestConfigStore_SaveWriteError(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.model", "mistral"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Save())
}

func TestConfigStore_UnmarshallableValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Set("bad", make(chan int)))
}

func TestConfigStore_CommentOnlyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFile), []byte("# nothing yet\n"), 0600))

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Empty(t, store.Keys())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "retrieval.k" + string(rune('0'+id))
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_ = store.GetDuration(key)
			_ = store.Keys()
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys(), 10)
}

func TestOpenConfigFile_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom", "meetsight.toml")

	store, err := OpenConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	require.NoError(t, store.Set("llm.model", "mistral"))
	require.NoError(t, store.Save())

	reopened, err := OpenConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", reopened.GetString("llm.model"))
}
