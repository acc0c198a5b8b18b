// taxonomy runs the academic taxonomy generation pipeline end to end,
// resumes an interrupted run, reports checkpoint status, or validates
// configuration without executing anything.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/orchestrator"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// overrideFlags collects repeated -override key=value flags into a slice.
type overrideFlags []string

func (o *overrideFlags) String() string { return strings.Join(*o, ",") }

func (o *overrideFlags) Set(value string) error {
	*o = append(*o, value)
	return nil
}

func loadEnvFile(configDir string) {
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	} else {
		log.Printf("loaded environment from %s", envPath)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(os.Args[2:])
	case "resume":
		err = resumeCommand(os.Args[2:])
	case "status":
		err = statusCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Printf("error: %v", err)
		os.Exit(2)
	}
	os.Exit(0)
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: taxonomy <command> [flags]

commands:
  run      [--config-dir D] [--environment E] [--resume-phase P] [--override key=value]*
  resume   <run_id> [--config-dir D] [--environment E] [--phase P]
  status   <run_id> [--config-dir D] [--environment E]
  validate [--config-dir D] [--environment E] [--override key=value]*`)
}

func loadSettings(configDir, environment string, overrides overrideFlags) (*config.Settings, error) {
	loadEnvFile(configDir)
	ctx := context.Background()
	return config.Load(ctx, configDir, config.Environment(environment), overrides)
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configDir := fs.String("config-dir", getEnv("CONFIG_DIR", "./config"), "path to configuration directory")
	environment := fs.String("environment", getEnv("TAXONOMY_ENV", "development"), "runtime environment")
	resumePhase := fs.String("resume-phase", "", "phase name to resume from (empty runs from the start)")
	var overrides overrideFlags
	fs.Var(&overrides, "override", "dotted.key=value override, may be repeated")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := loadSettings(*configDir, *environment, overrides)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	pipeline, err := orchestrator.NewPipeline(settings, "")
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	slog.Info("starting run", "run_id", pipeline.RunID(), "run_dir", pipeline.RunDir())
	if err := pipeline.Run(context.Background(), *resumePhase); err != nil {
		return fmt.Errorf("run %s: %w", pipeline.RunID(), err)
	}

	slog.Info("run complete", "run_id", pipeline.RunID())
	return nil
}

func resumeCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("resume requires a run_id argument")
	}
	runID := args[0]
	args = args[1:]

	fs := flag.NewFlagSet("resume", flag.ExitOnError)
	configDir := fs.String("config-dir", getEnv("CONFIG_DIR", "./config"), "path to configuration directory")
	environment := fs.String("environment", getEnv("TAXONOMY_ENV", "development"), "runtime environment")
	phase := fs.String("phase", "", "phase name to resume from (empty resumes at the next pending phase)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := loadSettings(*configDir, *environment, nil)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	pipeline, err := orchestrator.NewPipeline(settings, runID)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	slog.Info("resuming run", "run_id", runID, "phase", *phase)
	if err := pipeline.Run(context.Background(), *phase); err != nil {
		return fmt.Errorf("resume %s: %w", runID, err)
	}

	slog.Info("resume complete", "run_id", runID)
	return nil
}

func statusCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("status requires a run_id argument")
	}
	runID := args[0]
	args = args[1:]

	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configDir := fs.String("config-dir", getEnv("CONFIG_DIR", "./config"), "path to configuration directory")
	environment := fs.String("environment", getEnv("TAXONOMY_ENV", "development"), "runtime environment")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := loadSettings(*configDir, *environment, nil)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	runDir := settings.RunDir(runID)
	matches, err := filepath.Glob(filepath.Join(runDir, "*.checkpoint.json"))
	if err != nil {
		return fmt.Errorf("listing checkpoints: %w", err)
	}
	sort.Strings(matches)

	if len(matches) == 0 {
		fmt.Printf("no checkpoints found under %s\n", runDir)
		return nil
	}
	fmt.Printf("checkpoints for run %s:\n", runID)
	for _, m := range matches {
		fmt.Println(" ", filepath.Base(m))
	}
	return nil
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configDir := fs.String("config-dir", getEnv("CONFIG_DIR", "./config"), "path to configuration directory")
	environment := fs.String("environment", getEnv("TAXONOMY_ENV", "development"), "runtime environment")
	var overrides overrideFlags
	fs.Var(&overrides, "override", "dotted.key=value override, may be repeated")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := loadSettings(*configDir, *environment, overrides)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Printf("configuration valid: environment=%s policy_version=%s\n", settings.Environment, settings.Policies.PolicyVersion)
	return nil
}
