package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rtgen/internal/config"
)

// project is the configuration a command runs with and the units it
// covers.
type project struct {
	cfg      config.Config
	manifest string // empty without a manifest
	units    []string
}

// loadProject resolves the manifest (explicit --config or discovered), then
// applies command-line overrides. Units named in args replace the
// manifest's list.
func loadProject(cmd *cobra.Command, args []string) (*project, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if path != "" {
		cfg, err = config.Open(path)
	} else {
		wd, wdErr := os.Getwd()
		if wdErr != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", wdErr)
		}
		cfg, path, err = config.Discover(wd)
	}
	if err != nil {
		return nil, err
	}
	if err := applyOverrides(cmd, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		var ce *config.Error
		if errors.As(err, &ce) && ce.Path == "" {
			ce.Path = "<command line>"
		}
		return nil, err
	}

	p := &project{cfg: cfg, manifest: path}
	if len(args) > 0 {
		p.units = args
	} else {
		p.units = cfg.ResolveUnits(path)
	}
	if len(p.units) == 0 {
		return nil, errors.New("no units to process: pass unit files or list them under units in " + config.ManifestName)
	}
	return p, nil
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Lookup("triple") != nil && flags.Changed("triple") {
		v, err := flags.GetString("triple")
		if err != nil {
			return err
		}
		cfg.Target.Triple = v
	}
	if flags.Lookup("ptr-size") != nil && flags.Changed("ptr-size") {
		v, err := flags.GetInt("ptr-size")
		if err != nil {
			return err
		}
		cfg.Target.PtrSize = v
	}
	if flags.Lookup("linkage") != nil && flags.Changed("linkage") {
		v, err := flags.GetString("linkage")
		if err != nil {
			return err
		}
		cfg.Emit.Linkage = v
	}
	if flags.Lookup("jobs") != nil && flags.Changed("jobs") {
		v, err := flags.GetInt("jobs")
		if err != nil {
			return err
		}
		cfg.Emit.Jobs = v
	}
	if flags.Lookup("out") != nil && flags.Changed("out") {
		v, err := flags.GetString("out")
		if err != nil {
			return err
		}
		cfg.Emit.Out = v
	}
	if flags.Lookup("no-cache") != nil {
		v, err := flags.GetBool("no-cache")
		if err != nil {
			return err
		}
		if v {
			off := false
			cfg.Emit.Cache = &off
		}
	}
	return nil
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("triple", "", "target triple (overrides the manifest)")
	cmd.Flags().Int("ptr-size", 0, "pointer size in bytes, 4 or 8 (overrides the manifest)")
	cmd.Flags().String("linkage", "", "descriptor linkage (linkonce_odr|weak_odr|external|internal)")
}
