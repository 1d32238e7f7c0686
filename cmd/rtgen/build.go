package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"rtgen/internal/buildpipeline"
	"rtgen/internal/dcache"
	"rtgen/internal/driver"
	"rtgen/internal/ui"
)

var buildCmd = &cobra.Command{
	Use:   "build [unit.toml...]",
	Short: "Generate descriptors and write one .ll file per unit",
	Long: `Build loads every unit (from the arguments or the manifest's units list),
generates its type descriptors and writes <out>/<unit>.ll.`,
	RunE: runBuild,
}

func init() {
	addTargetFlags(buildCmd)
	buildCmd.Flags().IntP("jobs", "j", 0, "units built in parallel (0 = one per CPU)")
	buildCmd.Flags().StringP("out", "o", "", "output directory (overrides the manifest)")
	buildCmd.Flags().Bool("no-cache", false, "ignore and do not fill the build cache")
	buildCmd.Flags().String("cache-dir", "", "build cache directory (default: user cache dir)")
	buildCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	buildCmd.Flags().String("format", "pretty", "diagnostics format (pretty|json)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	failed := true
	defer func() { cleanup(failed) }()

	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	proj, err := loadProject(cmd, args)
	if err != nil {
		return reportSetupError(cmd, proj, err, format)
	}
	cache, err := openCache(cmd, proj)
	if err != nil {
		return err
	}

	rec := &buildpipeline.Recorder{}
	req := driver.Request{
		Units:   proj.units,
		Config:  proj.cfg,
		Cache:   cache,
		Sink:    rec,
		Timings: timings,
	}
	start := time.Now()
	var res *driver.Result
	useTUI := shouldUseTUI(mode) && format != "json"
	if useTUI {
		res, err = runBuildWithUI(cmd.Context(), "rtgen build", req)
	} else {
		res, err = driver.Build(cmd.Context(), req)
	}
	if err != nil && res == nil {
		return reportSetupError(cmd, proj, err, format)
	}

	out := cmd.OutOrStdout()
	if !useTUI && format != "json" {
		fmt.Fprint(out, ui.Summary(proj.units, rec.Events(), terminalWidth(stdoutFile(out))))
	}
	bag := res.Bag()
	if perr := printDiagnostics(cmd, out, bag, format); perr != nil {
		return perr
	}
	if format != "json" {
		summarizeBag(out, bag)
		printBuildSummary(out, res, time.Since(start))
	}
	if err != nil {
		return err
	}
	if res.HasErrors() {
		return errors.New("build failed")
	}
	failed = false
	return nil
}

func openCache(cmd *cobra.Command, proj *project) (*dcache.Cache, error) {
	if !proj.cfg.CacheEnabled() {
		return nil, nil
	}
	dir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return nil, err
	}
	if dir != "" {
		return dcache.Open(dir)
	}
	cache, err := dcache.OpenDefault("rtgen")
	if err != nil {
		// the build still works without a cache
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: build cache disabled: %v\n", err)
		return nil, nil
	}
	return cache, nil
}

func reportSetupError(cmd *cobra.Command, proj *project, err error, format string) error {
	path := ""
	if proj != nil {
		path = proj.manifest
	}
	bag := driverBag(driver.ErrorDiagnostic(path, err))
	if perr := printDiagnostics(cmd, cmd.ErrOrStderr(), bag, format); perr != nil {
		return perr
	}
	cmd.SilenceUsage = true
	return err
}

func printBuildSummary(out io.Writer, res *driver.Result, elapsed time.Duration) {
	built, cached, failed := 0, 0, 0
	for _, u := range res.Units {
		switch {
		case u.Bag != nil && u.Bag.HasErrors():
			failed++
		case u.Cached:
			cached++
		case u.Output != "":
			built++
		}
	}
	status := color.New(color.FgGreen, color.Bold).Sprint("ok")
	if failed > 0 {
		status = color.New(color.FgRed, color.Bold).Sprint("failed")
	}
	fmt.Fprintf(out, "%s: %d built, %d cached, %d failed in %.1f ms\n", status, built, cached, failed, toMillis(elapsed))
	for _, u := range res.Units {
		if u.Output != "" {
			fmt.Fprintf(out, "  %s -> %s\n", filepath.ToSlash(u.Path), filepath.ToSlash(u.Output))
		}
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
