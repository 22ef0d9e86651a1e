//go:build ignore

package main

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

// Run with `go run build.go` to populate dist/, which the server prefers in
// production.
func main() {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
		TemplateDelims:   html.GoTemplateDelims,
	})

	byExt := map[string]string{
		".html": "text/html",
		".css":  "text/css",
		".js":   "application/javascript",
	}

	for _, root := range []string{"templates", "static"} {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			mediaType, ok := byExt[filepath.Ext(path)]
			if !ok {
				return copyFile(path, filepath.Join("dist", path))
			}
			return minifyFile(m, path, filepath.Join("dist", path), mediaType)
		})
		if err != nil {
			log.Fatalf("Error building %s: %v", root, err)
		}
	}

	fmt.Println("✅ Minification complete!")
	fmt.Println("📁 Minified files are in the 'dist' directory")
}

func minifyFile(m *minify.M, srcPath, dstPath, mediaType string) error {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}

	minified, err := m.Bytes(mediaType, src)
	if err != nil {
		return fmt.Errorf("%s: %w", srcPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, minified, 0o644); err != nil {
		return err
	}

	originalSize := len(src)
	minifiedSize := len(minified)
	ratio := 0.0
	if originalSize > 0 {
		ratio = float64(originalSize-minifiedSize) / float64(originalSize) * 100
	}
	fmt.Printf("📦 %s: %d bytes → %d bytes (%.1f%% reduction)\n",
		srcPath, originalSize, minifiedSize, ratio)
	return nil
}

func copyFile(srcPath, dstPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return err
	}
	fmt.Printf("📄 %s copied\n", srcPath)
	return os.WriteFile(dstPath, data, 0o644)
}
