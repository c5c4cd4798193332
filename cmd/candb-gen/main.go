package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/tools/imports"

	"github.com/candb-tools/candb-go/pkg/candb"
)

func main() {
	pkg := flag.String("pkg", "", "Package name for the generated file")
	output := flag.String("o", "", "Output path for the generated Go file")
	flag.Parse()

	if *pkg == "" || *output == "" || flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: candb-gen -pkg <name> -o <out.go> <file.{dbc,kcd,sym}>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), *pkg, *output); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(inputPath, pkg, outputPath string) error {
	dialect, err := candb.DialectForFile(inputPath)
	if err != nil {
		return err
	}
	text, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputPath, err)
	}
	db, err := candb.Load(string(text), dialect)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(inputPath), err)
	}

	code, err := Generate(db, pkg)
	if err != nil {
		return fmt.Errorf("generating code: %w", err)
	}
	if err := writeFormatted(outputPath, code); err != nil {
		return err
	}
	fmt.Printf("  generated %s\n", outputPath)
	return nil
}

// writeFormatted formats Go source code with goimports and writes it to a file.
func writeFormatted(path string, code string) error {
	formatted, err := imports.Process(path, []byte(code), nil)
	if err != nil {
		// Write unformatted so you can debug the generator output
		_ = os.WriteFile(path+".broken", []byte(code), 0o644)
		return fmt.Errorf("goimports %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, formatted, 0o644)
}
