package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-html2pdf/internal/config"
	"github.com/alnah/go-html2pdf/internal/fileutil"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string      `json:"status"` // "ready", "warnings", "errors"
	Chrome   chromeInfo  `json:"chrome"`
	Env      envInfo     `json:"environment"`
	Storage  storageInfo `json:"storage"`
	System   systemInfo  `json:"system"`
	Warnings []string    `json:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

// storageInfo reports the configured directories.
type storageInfo struct {
	UploadDir         string `json:"upload_dir"`
	UploadDirWritable bool   `json:"upload_dir_writable"`
	OutputDir         string `json:"output_dir"`
	OutputDirWritable bool   `json:"output_dir_writable"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found, 2 = bad flags.
func runDoctorCmd(args []string, env *Environment) int {
	fs, f := newFlagSet("html2pdf-server doctor", env.Stderr)
	jsonOutput := fs.Bool("json", false, "print results as JSON")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "html2pdf-server doctor: %v\n", err)
		return ExitUsage
	}

	result := runDoctor(f, env)

	if *jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks against the effective config.
// A config that fails to load is reported and the defaults are checked instead.
func runDoctor(f *serverFlags, env *Environment) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}

	cfg, _, err := loadServerConfig(f, env)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Config: %v", err))
		cfg = config.DefaultConfig()
	}

	checkChrome(result, cfg)
	checkEnvironment(result, cfg, env)
	checkStorage(result, cfg)
	checkSystem(result)

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkChrome detects the Chrome/Chromium binary the server would launch.
func checkChrome(result *doctorResult, cfg *config.Config) {
	result.Chrome.Sandbox = !cfg.Browser.NoSandbox

	chromePath := cfg.Browser.Bin
	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			result.Warnings = append(result.Warnings,
				"Chrome/Chromium not found; a managed Chromium is downloaded on first render. Set browser.bin to use an installed one")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	// #nosec G204 -- path comes from config or launcher lookup
	out, err := exec.Command(chromePath, "--version").Output()
	if err == nil {
		result.Chrome.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, cfg *config.Config, env *Environment) {
	result.Env.Container, result.Env.ContainerHint = isContainer(env)

	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if val, _ := env.LookupEnv(v); val != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && !cfg.Browser.NoSandbox {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but the Chrome sandbox is enabled. Set HTML2PDF_NO_SANDBOX=1 or --no-sandbox")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer(env *Environment) (bool, string) {
	if v, _ := env.LookupEnv(envContainer); v == "1" {
		return true, envContainer + "=1"
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v, _ := env.LookupEnv("container"); v != "" {
		return true, "container=" + v
	}
	if v, _ := env.LookupEnv("KUBERNETES_SERVICE_HOST"); v != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkStorage verifies the upload and output directories are usable.
// A missing directory is fine when its parent is writable: the server
// creates it.
func checkStorage(result *doctorResult, cfg *config.Config) {
	var ok bool

	result.Storage.UploadDir, ok = checkDir("Upload", cfg.Storage.UploadDir, result)
	result.Storage.UploadDirWritable = ok

	result.Storage.OutputDir, ok = checkDir("Output", cfg.Storage.OutputDir, result)
	result.Storage.OutputDirWritable = ok
}

func checkDir(label, dir string, result *doctorResult) (string, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s directory %s: %v", label, dir, err))
		return dir, false
	}

	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		result.Errors = append(result.Errors, fmt.Sprintf("%s directory %s is a file", label, abs))
		return abs, false
	case err == nil:
		if !fileutil.IsDirWritable(abs) {
			result.Errors = append(result.Errors, fmt.Sprintf("%s directory not writable: %s", label, abs))
			return abs, false
		}
		return abs, true
	case os.IsNotExist(err):
		parent := filepath.Dir(abs)
		if !fileutil.IsDirWritable(parent) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s directory %s cannot be created: %s not writable", label, abs, parent))
			return abs, false
		}
		return abs, true
	default:
		result.Errors = append(result.Errors, fmt.Sprintf("%s directory %s: %v", label, abs, err))
		return abs, false
	}
}

// checkSystem verifies system requirements.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	if fileutil.IsDirWritable(tmpDir) {
		result.System.TempWritable = true
		return
	}
	result.Errors = append(result.Errors,
		fmt.Sprintf("Temp directory not writable: %s", tmpDir))
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "html2pdf-server doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
	} else {
		fmt.Fprintln(w, "  [WARN] Not found")
	}
	if r.Chrome.Sandbox {
		fmt.Fprintln(w, "  [OK] Sandbox: enabled")
	} else {
		fmt.Fprintln(w, "  [OK] Sandbox: disabled")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Storage")
	printDirStatus(w, "Upload directory", r.Storage.UploadDir, r.Storage.UploadDirWritable)
	printDirStatus(w, "Output directory", r.Storage.OutputDir, r.Storage.OutputDirWritable)
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to serve")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}

func printDirStatus(w io.Writer, label, dir string, ok bool) {
	if ok {
		fmt.Fprintf(w, "  [OK] %s: %s\n", label, dir)
		return
	}
	fmt.Fprintf(w, "  [ERROR] %s: %s\n", label, dir)
}
