package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"rtgen/internal/diag"
	"rtgen/internal/diagfmt"
)

// printDiagnostics renders bag in the requested format, keeping at most
// --max-diagnostics entries.
func printDiagnostics(cmd *cobra.Command, out io.Writer, bag *diag.Bag, format string) error {
	if bag == nil || bag.Len() == 0 {
		return nil
	}
	maxDiag, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	bag = limitBag(bag, maxDiag, timings)
	switch format {
	case "json":
		return diagfmt.JSON(out, bag, diagfmt.JSONOpts{PathMode: diagfmt.PathModeRelative, Max: maxDiag, IncludeNotes: true})
	case "pretty", "":
		diagfmt.Pretty(out, bag, diagfmt.PrettyOpts{
			Color:     !color.NoColor,
			PathMode:  diagfmt.PathModeRelative,
			Width:     terminalWidth(os.Stdout),
			ShowNotes: true,
		})
		return nil
	default:
		return errInvalidFlag("format", format, "pretty|json")
	}
}

// limitBag drops timing entries unless requested and caps the rest.
func limitBag(bag *diag.Bag, maxDiag int, timings bool) *diag.Bag {
	items := bag.Items()
	kept := make([]diag.Diagnostic, 0, len(items))
	for _, d := range items {
		if d.Code == diag.ObsTimings && !timings {
			continue
		}
		kept = append(kept, d)
	}
	if maxDiag > 0 && len(kept) > maxDiag {
		kept = kept[:maxDiag]
	}
	out := diag.NewBag(len(kept) + 1)
	for _, d := range kept {
		out.Add(d)
	}
	return out
}

func summarizeBag(out io.Writer, bag *diag.Bag) {
	errs, warns := 0, 0
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	if errs == 0 && warns == 0 {
		return
	}
	fmt.Fprintf(out, "%d error(s), %d warning(s)\n", errs, warns)
}
