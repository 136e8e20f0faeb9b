package main

import (
	"fmt"
	"io"

	"github.com/pmezard/go-difflib/difflib"
)

// printDiff writes a unified diff of one file.
func printDiff(out io.Writer, path, original, changed string) error {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(changed),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
	if err != nil {
		return fmt.Errorf("diff %s: %w", path, err)
	}

	_, err = io.WriteString(out, diff)

	return err
}
