package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"rtgen/internal/backend/llvm"
	"rtgen/internal/diag"
	"rtgen/internal/driver"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [unit.toml...]",
	Short: "Print the symbols (or the IR) a unit would emit, without writing files",
	RunE:  runDump,
}

func init() {
	addTargetFlags(dumpCmd)
	dumpCmd.Flags().Bool("ir", false, "print the LLVM IR instead of the symbol table")
	dumpCmd.Flags().String("kind", "", "only list symbols of this kind (descriptor|data|string|vtbl|...)")
	dumpCmd.Flags().Bool("sort", false, "sort symbols by name instead of definition order")
}

func runDump(cmd *cobra.Command, args []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	failed := true
	defer func() { cleanup(failed) }()

	showIR, err := cmd.Flags().GetBool("ir")
	if err != nil {
		return err
	}
	kind, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}
	byName, err := cmd.Flags().GetBool("sort")
	if err != nil {
		return err
	}
	proj, err := loadProject(cmd, args)
	if err != nil {
		return reportSetupError(cmd, proj, err, "pretty")
	}

	out := cmd.OutOrStdout()
	all := diag.NewBag(0)
	for i, path := range proj.units {
		gen, bag := driver.Generate(cmd.Context(), path, proj.cfg)
		all.Merge(bag)
		if gen == nil {
			continue
		}
		if len(proj.units) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "== %s (%s)\n", path, gen.Unit.Module)
		}
		if showIR {
			fmt.Fprint(out, gen.IR)
			continue
		}
		syms := filterSymbols(gen.Symbols, kind)
		if byName {
			sort.SliceStable(syms, func(a, b int) bool { return syms[a].Name < syms[b].Name })
		}
		writeSymbolTable(out, syms, terminalWidth(stdoutFile(out)))
	}
	all.Sort()
	if err := printDiagnostics(cmd, cmd.ErrOrStderr(), all, "pretty"); err != nil {
		return err
	}
	if all.HasErrors() {
		return errors.New("dump failed")
	}
	failed = false
	return nil
}

func filterSymbols(syms []llvm.Symbol, kind string) []llvm.Symbol {
	kind = strings.TrimSpace(strings.ToLower(kind))
	if kind == "" {
		return append([]llvm.Symbol(nil), syms...)
	}
	var out []llvm.Symbol
	for _, s := range syms {
		if s.Kind.String() == kind {
			out = append(out, s)
		}
	}
	return out
}

// writeSymbolTable prints KIND FIELDS SIZE NAME columns; names are
// truncated to width when it is known.
func writeSymbolTable(w io.Writer, syms []llvm.Symbol, width int) {
	const kindWidth, numWidth = 18, 7
	nameWidth := 0
	if width > 0 {
		nameWidth = width - kindWidth - 2*numWidth - 4
		if nameWidth < 24 {
			nameWidth = 24
		}
	}
	fmt.Fprintf(w, "%s %s %s %s\n",
		runewidth.FillRight("KIND", kindWidth),
		runewidth.FillLeft("FIELDS", numWidth),
		runewidth.FillLeft("SIZE", numWidth),
		"NAME")
	for _, s := range syms {
		fields := ""
		if s.Fields > 0 {
			fields = fmt.Sprint(s.Fields)
		}
		name := s.Name
		if nameWidth > 0 && runewidth.StringWidth(name) > nameWidth {
			name = runewidth.Truncate(name, nameWidth, "...")
		}
		fmt.Fprintf(w, "%s %s %s %s\n",
			runewidth.FillRight(s.Kind.String(), kindWidth),
			runewidth.FillLeft(fields, numWidth),
			runewidth.FillLeft(fmt.Sprint(s.Size), numWidth),
			name)
	}
}
