package utils

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestReadURLsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "urls.txt")
	content := "# 站点列表\n\nhttps://a.test\n  http://b.test/docs  \nftp://bad.test\nnot a url\nhttps://a.test\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	urls, err := ReadURLsFromFile(path)
	if err != nil {
		t.Fatalf("ReadURLsFromFile() error = %v", err)
	}
	want := []string{"https://a.test", "http://b.test/docs"}
	if !slices.Equal(urls, want) {
		t.Errorf("urls = %v, want %v", urls, want)
	}
}

func TestReadURLsFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadURLsFromFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("文件不存在应返回错误")
	}

	empty := filepath.Join(dir, "empty.txt")
	os.WriteFile(empty, []byte("# nothing\n\n"), 0644)
	if _, err := ReadURLsFromFile(empty); err == nil {
		t.Error("没有有效URL应返回错误")
	}
}
