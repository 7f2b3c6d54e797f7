// Package writer implements the output-file boundary of the pipeline
// (spec.md §4.6, §6 "Output file layout"): it assembles the per-function
// bytecode text the code generator produced into one program-level text
// stream and writes it to "<project-root>/outputs/<package-name>.aleo".
//
// This is the only package in the pipeline that touches a filesystem; the
// three passes are pure tree rewrites (spec.md §5).
package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"triadc/internal/errors"
)

// OutputsDir is the fixed subdirectory name the original Leo tooling writes
// generated bytecode under (_examples/original_source/leo/package/src/outputs
// names its directory constant OUTPUTS_DIRECTORY_NAME the same way).
const OutputsDir = "outputs"

// Program renders a full program's text: the "program <name>;" header, a
// blank line, and the concatenated function bytecode (spec.md §6 "Output
// format").
func Program(packageName string, functionBytecode string) string {
	return fmt.Sprintf("program %s;\n\n%s", packageName, functionBytecode)
}

// Write writes program text to <dir>/outputs/<packageName>.aleo, or to
// <dir>/<packageName>.aleo directly if dir already ends in "outputs"
// — per spec.md §6: "If the path supplied is a directory, the
// writer appends outputs/<package-name>.aleo."
//
// The file is written atomically: the text is staged to a temp file in the
// same directory and renamed into place, so a concurrent reader never
// observes a partially written file, and a write failure never leaves a
// truncated .aleo behind (SPEC_FULL.md §4 item 6 — stronger than the
// original Leo tool's plain File::create, recorded as an intentional
// strengthening in DESIGN.md).
func Write(dir, packageName, text string) (string, error) {
	outDir := dir
	if filepath.Base(dir) != OutputsDir {
		outDir = filepath.Join(dir, OutputsDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", errors.IOError(outDir, err).Build()
	}

	target := filepath.Join(outDir, packageName+".aleo")

	tmp, err := os.CreateTemp(outDir, "."+packageName+".aleo.*.tmp")
	if err != nil {
		return "", errors.IOError(target, err).Build()
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", errors.IOError(target, err).Build()
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", errors.IOError(target, err).Build()
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", errors.IOError(target, err).Build()
	}
	return target, nil
}
