package main

import (
	"io"
	"os"

	"rtgen/internal/diag"
)

func driverBag(ds ...diag.Diagnostic) *diag.Bag {
	bag := diag.NewBag(len(ds) + 1)
	for _, d := range ds {
		bag.Add(d)
	}
	return bag
}

// stdoutFile returns the terminal behind w, or os.Stdout when w is not a
// file.
func stdoutFile(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return os.Stdout
}
