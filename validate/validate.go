// Command validate checks referee settings files before deployment. For each
// YAML file it checks:
//   - YAML syntax and unknown keys
//   - value ranges (port, turn budget, buffers)
//   - the viewer name is a name clients could register
//   - allowed_origins entries are absolute http(s) origins
//
// Files are given as arguments; with none, every *.yaml and *.yml file in
// the current directory is checked.
package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/chess-referee/game/config"
	"github.com/wricardo/chess-referee/game/registry"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateSettings loads and validates a single settings file.
func validateSettings(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	settings := config.Default()
	if err := config.Decode(data, &settings); err != nil {
		result.fail("Invalid YAML: %v", err)
		return result
	}

	if err := settings.Validate(); err != nil {
		result.fail("%v", err)
	}

	if err := registry.ValidateName(settings.ViewerName); err != nil {
		result.fail("viewer_name: %v", err)
	}

	for _, origin := range settings.AllowedOrigins {
		u, err := url.Parse(origin)
		switch {
		case err != nil:
			result.fail("allowed_origins: %q: %v", origin, err)
		case u.Scheme != "http" && u.Scheme != "https":
			result.fail("allowed_origins: %q must use http or https", origin)
		case u.Host == "" || (u.Path != "" && u.Path != "/"):
			result.fail("allowed_origins: %q must be scheme://host[:port]", origin)
		}
	}

	if result.Valid {
		result.Errors = append(result.Errors,
			fmt.Sprintf("✓ Listens on %s", settings.Addr()),
			fmt.Sprintf("✓ Viewer %q, %g seconds per turn by default", settings.ViewerName, settings.DefaultSecondsPerTurn),
		)
		if len(settings.AllowedOrigins) == 0 {
			result.Errors = append(result.Errors, "✓ All websocket origins allowed")
		}
	}

	return result
}

func settingsFiles(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	return files, nil
}

func main() {
	files, err := settingsFiles(os.Args[1:])
	if err != nil {
		fmt.Printf("Error finding settings files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Println("No settings files found")
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateSettings(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All settings files are valid!")
	} else {
		fmt.Println("❌ Some settings files have errors")
		os.Exit(1)
	}
}
