package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGo(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLintFlagsMissingMarker(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "q.go", "package q\n\nconst QBad = `select 1;`\n\nconst QGood = `--sql 0b8f5c2a-6d1e-4f3a-9c7b-2e4d6a8f1b3c\nselect 2;`\n\nconst Label = \"not sql\"\n")

	l := newLinter()
	if err := l.lintPath(dir); err != nil {
		t.Fatal(err)
	}
	if len(l.violations) != 1 || l.violations[0].name != "QBad" || l.violations[0].line != 3 {
		t.Fatalf("violations = %+v", l.violations)
	}
}

func TestLintFlagsDuplicateMarkersAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	marker := "--sql 0b8f5c2a-6d1e-4f3a-9c7b-2e4d6a8f1b3c"
	writeGo(t, dir, "a.go", "package q\n\nconst QA = `"+marker+"\nselect 1;`\n")
	writeGo(t, dir, "b.go", "package q\n\nconst QB = `"+marker+"\nselect 2;`\n")

	l := newLinter()
	if err := l.lintPath(dir); err != nil {
		t.Fatal(err)
	}
	if len(l.violations) != 1 || !strings.Contains(l.violations[0].message, "already used") {
		t.Fatalf("violations = %+v", l.violations)
	}
}

func TestLintRepositoryStatements(t *testing.T) {
	l := newLinter()
	if err := l.lintPath(filepath.Join("..", "..", "internal", "sqlinline")); err != nil {
		t.Fatal(err)
	}
	if len(l.violations) != 0 {
		t.Fatalf("violations = %+v", l.violations)
	}
}
