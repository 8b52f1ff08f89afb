package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/stageplan/internal/ports"
	"github.com/alexisbeaulieu97/stageplan/internal/stage"
	"github.com/alexisbeaulieu97/stageplan/internal/step"
)

func sampleSteps(t *testing.T) []*step.Step {
	t.Helper()

	st, err := step.NewStateApply("mons", []any{map[string]any{"tgt": "I@roles:mon"}, map[string]any{"sls": "ceph.mon"}})
	require.NoError(t, err)
	runner, err := step.NewRunnerCall("ready", []any{map[string]any{"name": "ready.check"}, map[string]any{"require": []any{map[string]any{"salt": "mons"}}}})
	require.NoError(t, err)
	builtin, err := step.NewBuiltin("wait", "salt.wait_for_event", []any{map[string]any{"timeout": 300}, "loose"})
	require.NoError(t, err)

	runner.OnSuccess = []*step.Step{st}
	return []*step.Step{st, runner, builtin}
}

func storeContract(t *testing.T, store ports.PlanCache) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "ceph.stage.0", true)
	require.NoError(t, err)
	assert.False(t, ok)

	original := sampleSteps(t)
	require.NoError(t, store.Put(ctx, "ceph.stage.0", true, original))
	require.NoError(t, store.Put(ctx, "ceph.stage.0", false, original[:1]))
	require.NoError(t, store.Put(ctx, "ceph.stage.1", true, original[1:]))

	got, ok, err := store.Get(ctx, "ceph.stage.0", true)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 3)
	for i := range got {
		assert.NotSame(t, original[i], got[i])
		assert.Equal(t, original[i].Kind, got[i].Kind)
		assert.Equal(t, original[i].Desc, got[i].Desc)
		assert.Equal(t, original[i].Fun, got[i].Fun)
		assert.Equal(t, original[i].State, got[i].State)
		assert.Equal(t, original[i].Target, got[i].Target)
		assert.Equal(t, original[i].Args, got[i].Args)
		assert.Empty(t, got[i].OnSuccess)
		assert.Empty(t, got[i].OnFail)
	}

	again, _, err := store.Get(ctx, "ceph.stage.0", true)
	require.NoError(t, err)
	assert.NotSame(t, got[0], again[0])

	other, ok, err := store.Get(ctx, "ceph.stage.0", false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, other, 1)

	require.NoError(t, store.Clear(ctx, "ceph.stage.0"))
	_, ok, _ = store.Get(ctx, "ceph.stage.0", true)
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "ceph.stage.0", false)
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "ceph.stage.1", true)
	assert.True(t, ok)

	require.NoError(t, store.Clear(ctx, ""))
	_, ok, _ = store.Get(ctx, "ceph.stage.1", true)
	assert.False(t, ok)

	require.NoError(t, store.Clear(ctx, "never.stored"))
}

func TestFileStoreContract(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir(), "")
	require.NoError(t, err)
	storeContract(t, store)
}

func TestMemoryStoreContract(t *testing.T) {
	t.Parallel()

	storeContract(t, NewMemoryStore())
}

func TestSQLiteStoreContract(t *testing.T) {
	t.Parallel()

	store, err := OpenSQLite(filepath.Join(t.TempDir(), "cache", "plans.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	storeContract(t, store)
}

func TestKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "_deepsea_true_ceph.stage.4", Key(DefaultPrefix, "ceph.stage.4", true))
	assert.Equal(t, "_x_false_ceph.mon", Key("_x", "ceph.mon", false))
}

func TestFileStoreLayout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir, "_deepsea")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "ceph.stage.4", true, sampleSteps(t)))

	path := filepath.Join(dir, "_deepsea_true_ceph.stage.4.cache")
	assert.Equal(t, path, store.Path("ceph.stage.4", true))
	_, err = os.Stat(path)
	require.NoError(t, err)

	tmps, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmps)

	unrelated := filepath.Join(dir, "_other_true_ceph.stage.4.cache")
	require.NoError(t, os.WriteFile(unrelated, []byte("x"), 0o644))

	require.NoError(t, store.Clear(ctx, ""))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(unrelated)
	assert.NoError(t, err)
}

func TestFileStoreCorruptEntry(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir(), "")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, os.WriteFile(store.Path("ceph.stage.1", true), []byte("version: [\n"), 0o644))
	_, ok, err := store.Get(ctx, "ceph.stage.1", true)
	require.Error(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(store.Path("ceph.stage.1", true), []byte("version: \"0\"\n"), 0o644))
	_, _, err = store.Get(ctx, "ceph.stage.1", true)
	require.ErrorContains(t, err, "format")

	// an entry renamed onto the wrong key is rejected
	data, err := encode("ceph.stage.2", true, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path("ceph.stage.1", true), data, 0o644))
	_, _, err = store.Get(ctx, "ceph.stage.1", true)
	require.ErrorContains(t, err, "belongs to")
}

func TestStoresRespectCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs, err := NewFileStore(t.TempDir(), "")
	require.NoError(t, err)
	for _, store := range []ports.PlanCache{fs, NewMemoryStore()} {
		_, _, err := store.Get(ctx, "a", true)
		require.ErrorIs(t, err, context.Canceled)
		require.ErrorIs(t, store.Put(ctx, "a", true, nil), context.Canceled)
		require.ErrorIs(t, store.Clear(ctx, ""), context.Canceled)
	}
}

func TestMemoryStoreLen(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	require.NoError(t, m.Put(context.Background(), stage.ID("a"), true, nil))
	assert.Equal(t, 1, m.Len())
}
