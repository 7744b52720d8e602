package commands

import (
	"fmt"
	"os"
	"path/filepath"
)

// InitCommand scaffolds a new purlang project directory with a
// starter module. Adapted from sentra's own InitCommand (same
// mkdir-then-write-starter-file shape), retargeted at this language's
// file extension and syntax.
func InitCommand(args []string) error {
	projectName := "purlang-project"
	if len(args) > 0 {
		projectName = args[0]
	}

	if err := os.MkdirAll(projectName, 0o755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	mainFile := filepath.Join(projectName, "main.pur")
	content := "main (X): X\n"
	if err := os.WriteFile(mainFile, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to create main.pur: %w", err)
	}

	fmt.Printf("Initialized new purlang project: %s\n", projectName)
	return nil
}

// CleanCommand removes a project's build cache database, so the next
// cached build writes and stores freshly compiled image bytes.
func CleanCommand(args []string) error {
	cachePath := "purc.cache"
	if len(args) > 0 {
		cachePath = args[0]
	}
	if err := os.Remove(cachePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove build cache: %w", err)
	}
	fmt.Printf("Removed build cache: %s\n", cachePath)
	return nil
}
