package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/starford/legacygit/internal/testutil"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveMatch(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "2023", "proj-R1-final.zip"))
	touch(t, filepath.Join(root, "2023", "proj-R2.zip"))

	r := NewResolver(root, "")
	got, err := r.Resolve("R2", Resolution{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Fallback || filepath.Base(got.Path) != "proj-R2.zip" {
		t.Errorf("Resolve = %+v", got)
	}
}

func TestResolveExtensionCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "R1.ZIP"))
	touch(t, filepath.Join(root, "R1.txt"))

	got, err := NewResolver(root, ".zip").Resolve("R1", Resolution{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(got.Path) != "R1.ZIP" {
		t.Errorf("Path = %s", got.Path)
	}
}

func TestResolveWalkOrder(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b", "R1.zip"))
	touch(t, filepath.Join(root, "a", "R1-copy.zip"))

	got, err := NewResolver(root, "").Resolve("R1", Resolution{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Path != filepath.Join(root, "a", "R1-copy.zip") {
		t.Errorf("Path = %s, want the lexically first match", got.Path)
	}
}

func TestResolveFallback(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "R1.zip"))
	r := NewResolver(root, "")

	first, err := r.Resolve("R1", Resolution{})
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.Resolve("R9", first)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !got.Fallback || got.Path != first.Path {
		t.Errorf("Resolve = %+v, want fallback to %s", got, first.Path)
	}
}

func TestResolveUnresolvable(t *testing.T) {
	r := NewResolver(t.TempDir(), "")
	_, err := r.Resolve("R1", Resolution{})
	if !errors.Is(err, ErrUnresolvableArchive) {
		t.Errorf("err = %v, want ErrUnresolvableArchive", err)
	}
}

func TestProjectRootDescends(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "wrap", "proj", "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(dir, "wrap", "proj", "lib", "x.c"))

	got, err := ProjectRoot(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "wrap", "proj") {
		t.Errorf("ProjectRoot = %s", got)
	}
}

func TestProjectRootStopsAtFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "README"))
	touch(t, filepath.Join(dir, "only", "main.c"))

	got, err := ProjectRoot(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != dir {
		t.Errorf("ProjectRoot = %s, want %s", got, dir)
	}
}

func TestMaterializeReplacesTree(t *testing.T) {
	treeDir, tree := testutil.TestTree(t)
	touch(t, filepath.Join(treeDir, "stale.txt"))
	touch(t, filepath.Join(treeDir, ".git", "HEAD"))

	zipPath := filepath.Join(t.TempDir(), "R1.zip")
	testutil.WriteZip(t, zipPath, map[string]string{
		"R1/":               "",
		"R1/main.c":         "int main(){}",
		"R1/include/defs.h": "#define X 1",
	})

	ex := NewExtractor(tree, t.TempDir())
	if err := ex.Materialize(context.Background(), zipPath); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	items := testutil.ListFiles(t, treeDir)
	if !slices.Equal(items, []string{"include/defs.h", "main.c"}) {
		t.Errorf("tree = %v", items)
	}
	if _, err := os.Stat(filepath.Join(treeDir, ".git", "HEAD")); err != nil {
		t.Errorf("control dir touched: %v", err)
	}
}

func TestMaterializeKeepsFilesBesideSingleDir(t *testing.T) {
	treeDir, tree := testutil.TestTree(t)
	zipPath := filepath.Join(t.TempDir(), "R2.zip")
	testutil.WriteZip(t, zipPath, map[string]string{
		"wrap/R2/Makefile": "all:",
		"wrap/R2/main.c":   "int main(){}",
		"wrap/R2/src/a.c":  "int a;",
	})

	if err := NewExtractor(tree, t.TempDir()).Materialize(context.Background(), zipPath); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	items := testutil.ListFiles(t, treeDir)
	if !slices.Equal(items, []string{"Makefile", "main.c", "src/a.c"}) {
		t.Errorf("tree = %v", items)
	}
}

func TestUnzipRejectsTraversal(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "evil.zip")
	testutil.WriteZip(t, zipPath, map[string]string{"../escape.txt": "x"})

	if err := Unzip(context.Background(), zipPath, t.TempDir()); err == nil {
		t.Error("expected traversal entry to be rejected")
	}
}

func TestUnzipHonoursCancel(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "R1.zip")
	testutil.WriteZip(t, zipPath, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Unzip(ctx, zipPath, t.TempDir()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
