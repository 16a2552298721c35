package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	typeset "github.com/goliatone/go-typeset"
	"github.com/goliatone/go-typeset/internal/logging/gologger"
)

func main() {
	var (
		filePath   = flag.String("file", "", "Path to the annotated markdown document")
		showFields = flag.Bool("fields", true, "Print the decomposed field map as JSON")
		showMarkup = flag.Bool("markup", true, "Print the converted Typst markup")
		logLevel   = flag.String("log-level", "warn", "Log level (trace, debug, info, warn, error)")
		logFormat  = flag.String("log-format", "console", "Log format (json, console, pretty)")
	)

	flag.Parse()

	if *filePath == "" {
		log.Fatalf("--file is required")
	}

	provider, err := gologger.NewProvider(gologger.Config{
		Level:  *logLevel,
		Format: *logFormat,
	})
	if err != nil {
		log.Fatalf("configure logger: %v", err)
	}

	service := typeset.New(typeset.Config{
		Logger: provider.GetLogger("typeset.preview"),
	})

	source, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatalf("read document: %v", err)
	}

	result, err := service.Render(context.Background(), string(source))
	if err != nil {
		log.Fatalf("render document: %v", err)
	}

	fmt.Fprintf(os.Stdout, "Template: %s\nAnnotations: %d\n\n", result.Document.Template(), len(result.Annotations))

	if *showFields {
		fields, err := json.MarshalIndent(result.Document.Fields(), "", "  ")
		if err == nil {
			fmt.Fprintf(os.Stdout, "Fields:\n%s\n\n", fields)
		}
	}

	if *showMarkup {
		fmt.Fprintf(os.Stdout, "Typst Markup:\n%s\n", result.Markup)
	}
}
