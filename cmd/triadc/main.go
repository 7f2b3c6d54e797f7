// SPDX-License-Identifier: Apache-2.0

// Command triadc drives the three-pass middle end (SSA, flatten, codegen)
// over a fixture-notation source file and writes the resulting program's
// bytecode to an .aleo file.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"triadc/internal/ast"
	"triadc/internal/codegen"
	"triadc/internal/fixture"
	"triadc/internal/flatten"
	"triadc/internal/ssa"
	"triadc/internal/symboltable"
	"triadc/internal/writer"
)

func main() {
	outDir := flag.String("out", ".", "directory the compiled .aleo file is written under")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: triadc [-out <dir>] <file.triadc>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	log := logrus.New()

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read %s: %s", path, err)
		os.Exit(1)
	}

	program, symtab, err := fixture.Parse(path, string(source))
	if err != nil {
		color.Red("❌ %s", err)
		os.Exit(1)
	}

	target, err := compile(log, program, symtab, *outDir)
	if err != nil {
		color.Red("❌ %s", err)
		os.Exit(1)
	}

	color.Green("✅ wrote %s", target)
}

// compiled holds one function's emitted bytecode text, or the error its
// compilation failed with, alongside its index so the output can be assembled
// back in source order despite the functions having compiled concurrently.
type compiled struct {
	index int
	text  string
	err   error
}

// compile runs SSA → Flatten → Codegen over every function in program
// concurrently (spec.md §5: "functions may be compiled in parallel at the
// outer driver level because each function owns its own generator state;
// the symbol table is read-only during compilation"), then hands the
// concatenated, source-ordered bytecode text to the output-file writer.
func compile(log *logrus.Logger, program *ast.Program, symtab *symboltable.Table, outDir string) (string, error) {
	results := make([]compiled, len(program.Functions))

	var wg sync.WaitGroup
	for i, fn := range program.Functions {
		wg.Add(1)
		go func(i int, fn *ast.Function) {
			defer wg.Done()
			text, err := compileFunction(log, symtab, fn)
			results[i] = compiled{index: i, text: text, err: err}
		}(i, fn)
	}
	wg.Wait()

	var body string
	for _, r := range results {
		if r.err != nil {
			return "", fmt.Errorf("compiling %s: %w", program.Functions[r.index].Name, r.err)
		}
		body += r.text
	}

	text := writer.Program(program.Name, body)
	return writer.Write(outDir, program.Name, text)
}

// compileFunction runs the three passes for a single function, logging
// pass-level status the way a multi-function parallel driver needs to be
// able to tell which function's compilation produced which output.
func compileFunction(log *logrus.Logger, symtab *symboltable.Table, fn *ast.Function) (string, error) {
	result, err := ssa.TransformFunction(fn, symtab)
	if err != nil {
		return "", fmt.Errorf("ssa: %w", err)
	}
	log.WithFields(logrus.Fields{"pass": "ssa", "fn": fn.Name}).Debug("transformed")

	body, finalizeBody, err := flatten.Function(result)
	if err != nil {
		return "", fmt.Errorf("flatten: %w", err)
	}
	log.WithFields(logrus.Fields{"pass": "flatten", "fn": fn.Name}).Debug("folded")

	gen := codegen.NewGenerator(symtab)
	text, err := gen.Function(fn, body, finalizeBody)
	if err != nil {
		return "", fmt.Errorf("codegen: %w", err)
	}
	log.WithFields(logrus.Fields{"pass": "codegen", "fn": fn.Name, "bytes": len(text)}).Info("emitted")

	return text, nil
}
