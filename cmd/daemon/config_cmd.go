// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/reelbox/internal/config"
)

func runConfigCLI(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(os.Stdout)
		return 0
	}

	switch args[0] {
	case "init":
		return runConfigInit(args[1:])
	case "validate":
		return runConfigValidate(args[1:])
	case "dump":
		return runConfigDump(args[1:], os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(os.Stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  reelbox config init --file config.yaml [--force]")
	_, _ = fmt.Fprintln(w, "  reelbox config validate [--file|-f config.yaml]")
	_, _ = fmt.Fprintln(w, "  reelbox config dump --effective [--file|-f config.yaml] [--format=yaml|json]")
}

func runConfigInit(args []string) int {
	fs := flag.NewFlagSet("reelbox config init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	var force bool
	fs.StringVar(&file, "file", "", "path of the YAML file to create")
	fs.StringVar(&file, "f", "", "path of the YAML file to create (shorthand)")
	fs.BoolVar(&force, "force", false, "overwrite an existing file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(file) == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		return 2
	}

	if err := config.WriteExample(file, config.Defaults(), force); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", file, err)
		return 1
	}
	fmt.Printf("wrote %s\n", file)
	return 0
}

func configPathFromFlag(file string) (string, bool) {
	configPath := strings.TrimSpace(file)
	if configPath == "" {
		configPath = resolveDefaultConfigPath()
	}
	if configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required (no default config.yaml found in $REELBOX_DATA_DIR)")
		return "", false
	}
	return configPath, true
}

func runConfigValidate(args []string) int {
	fs := flag.NewFlagSet("reelbox config validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	configPath, ok := configPathFromFlag(file)
	if !ok {
		return 2
	}

	loader := config.NewLoader(configPath, version)
	if _, err := loader.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}

	fmt.Printf("%s is valid\n", configPath)
	return 0
}

func runConfigDump(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("reelbox config dump", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	var format string
	var effective bool

	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	fs.BoolVar(&effective, "effective", false, "dump effective configuration (defaults + file + env)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !effective {
		fmt.Fprintln(os.Stderr, "Error: --effective is required")
		return 2
	}
	configPath, ok := configPathFromFlag(file)
	if !ok {
		return 2
	}

	loader := config.NewLoader(configPath, version)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}
	redactSecrets(&cfg)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}

func redactSecrets(cfg *config.AppConfig) {
	if cfg.API.ServiceToken != "" {
		cfg.API.ServiceToken = "***"
	}
	if cfg.Cache.Redis.Password != "" {
		cfg.Cache.Redis.Password = "***"
	}
	if cfg.Storage.PostgresDSN != "" {
		cfg.Storage.PostgresDSN = maskURL(cfg.Storage.PostgresDSN)
	}
}
