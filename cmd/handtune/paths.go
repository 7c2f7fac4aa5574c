package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/ayusman/handtune/internal/config"
)

// findDir resolves the first of names that exists as a directory. Relative
// names are tried against the working directory, its parents, the
// executable's directory and ~/.handtune, in that order. It returns "" when
// none is found.
func findDir(names ...string) string {
	for _, name := range names {
		if name == "" {
			continue
		}
		if filepath.IsAbs(name) {
			if isDir(name) {
				return name
			}
			continue
		}

		candidates := []string{name, filepath.Join("..", name), filepath.Join("..", "..", name)}
		if exe, err := os.Executable(); err == nil {
			candidates = append(candidates, filepath.Join(filepath.Dir(exe), name))
		}
		candidates = append(candidates, filepath.Join(config.Dir(), name))

		for _, p := range candidates {
			if !isDir(p) {
				continue
			}
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// openBrowser opens url with the platform's default handler.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	default:
		return fmt.Errorf("opening a browser is not supported on %s", runtime.GOOS)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
