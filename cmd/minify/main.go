package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

var mediaTypes = map[string]string{
	"css":  "text/css",
	"js":   "application/javascript",
	"html": "text/html",
}

func main() {
	var (
		inputFile  = flag.String("input", "", "Input file path")
		outputFile = flag.String("output", "", "Output file path")
		fileType   = flag.String("type", "", "File type (css, js or html); inferred from the input extension when empty")
	)
	flag.Parse()

	if *inputFile == "" || *outputFile == "" {
		log.Fatal("Usage: go run ./cmd/minify -input=<file> -output=<file> [-type=<css|js|html>]")
	}

	kind := *fileType
	if kind == "" {
		kind = strings.TrimPrefix(filepath.Ext(*inputFile), ".")
	}
	mediaType, err := mediaTypeFor(kind)
	if err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(filepath.Dir(*outputFile), 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	input, err := os.ReadFile(*inputFile)
	if err != nil {
		log.Fatalf("Failed to read input file: %v", err)
	}

	minified, err := newMinifier().Bytes(mediaType, input)
	if err != nil {
		log.Fatalf("Failed to minify %s: %v", *inputFile, err)
	}

	if err := os.WriteFile(*outputFile, minified, 0o644); err != nil {
		log.Fatalf("Failed to write output file: %v", err)
	}

	fmt.Printf("Successfully minified %s -> %s (%d -> %d bytes)\n", *inputFile, *outputFile, len(input), len(minified))
}

func mediaTypeFor(kind string) (string, error) {
	mediaType, ok := mediaTypes[strings.ToLower(kind)]
	if !ok {
		return "", fmt.Errorf("unsupported file type: %q (supported: css, js, html)", kind)
	}
	return mediaType, nil
}

// newMinifier returns a minifier for the asset types the server ships.
// HTML is treated as Go html/template source so actions survive.
func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
		TemplateDelims:   html.GoTemplateDelims,
	})
	return m
}
