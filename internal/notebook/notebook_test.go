package notebook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notekiln/notekiln/internal/logging"
)

func writeNotebook(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("import marimo\n"), 0o644))
	return path
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		value   string
		want    Kind
		wantErr bool
	}{
		{value: "notebook", want: KindNotebook},
		{value: "notebook_wasm", want: KindNotebookWasm},
		{value: "app", want: KindApp},
		{value: "bogus", wantErr: true},
		{value: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.value)
		if tt.wantErr {
			assert.Error(t, err, tt.value)
			continue
		}
		require.NoError(t, err, tt.value)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.value, got.String())
	}
}

func TestKindConverterArgs(t *testing.T) {
	assert.Equal(t, []string{"marimo", "export", "html"}, KindNotebook.ConverterArgs())
	assert.Equal(t, []string{"marimo", "export", "html-wasm", "--mode", "edit"}, KindNotebookWasm.ConverterArgs())
	assert.Equal(t, []string{"marimo", "export", "html-wasm", "--mode", "run", "--no-show-code"}, KindApp.ConverterArgs())

	// Returned slice is a copy.
	args := KindNotebook.ConverterArgs()
	args[0] = "mutated"
	assert.Equal(t, "marimo", KindNotebook.ConverterArgs()[0])
}

func TestKindOutputDirs(t *testing.T) {
	assert.Equal(t, "notebooks", KindNotebook.OutputDir())
	assert.Equal(t, "notebooks_wasm", KindNotebookWasm.OutputDir())
	assert.Equal(t, "apps", KindApp.OutputDir())
}

func TestNewValidation(t *testing.T) {
	dir := t.TempDir()
	valid := writeNotebook(t, dir, "my_analysis.py")

	nb, err := New(valid, KindNotebook)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(nb.Path()))
	assert.Equal(t, "my_analysis", nb.Stem())
	assert.Equal(t, "my analysis", nb.DisplayName())
	assert.Equal(t, filepath.Join("notebooks", "my_analysis.html"), nb.HTMLPath())

	_, err = New(filepath.Join(dir, "missing.py"), KindNotebook)
	assert.Error(t, err)

	_, err = New(dir, KindNotebook)
	assert.Error(t, err, "directory is not a notebook")

	readme := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("# hi"), 0o644))
	_, err = New(readme, KindNotebook)
	assert.Error(t, err, "wrong extension")

	_, err = New(valid, Kind(99))
	assert.Error(t, err, "unknown kind")
}

func TestDiscover(t *testing.T) {
	log := logging.NewTestLogger()

	t.Run("non-existent folder yields empty", func(t *testing.T) {
		assert.Empty(t, Discover(filepath.Join(t.TempDir(), "nope"), KindNotebook, log))
	})

	t.Run("empty folder yields empty", func(t *testing.T) {
		assert.Empty(t, Discover(t.TempDir(), KindNotebook, log))
	})

	t.Run("empty folder name yields empty", func(t *testing.T) {
		assert.Empty(t, Discover("", KindNotebook, log))
	})

	t.Run("finds sorted top-level notebooks only", func(t *testing.T) {
		dir := t.TempDir()
		writeNotebook(t, dir, "zeta.py")
		writeNotebook(t, dir, "alpha.py")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

		nested := filepath.Join(dir, "nested")
		require.NoError(t, os.Mkdir(nested, 0o755))
		writeNotebook(t, nested, "hidden.py")

		got := Discover(dir, KindApp, log)
		require.Len(t, got, 2)
		assert.Equal(t, "alpha", got[0].Stem())
		assert.Equal(t, "zeta", got[1].Stem())
		assert.Equal(t, KindApp, got[0].Kind())
	})

	t.Run("follows symlinked notebooks", func(t *testing.T) {
		dir := t.TempDir()
		other := t.TempDir()
		target := writeNotebook(t, other, "linked.py")
		if err := os.Symlink(target, filepath.Join(dir, "linked.py")); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}

		got := Discover(dir, KindNotebook, log)
		require.Len(t, got, 1)
		assert.Equal(t, "linked", got[0].Stem())
	})
}
