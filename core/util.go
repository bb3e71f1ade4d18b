package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanStringPtr is CleanString for optional values. Blank values become nil.
func CleanStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	cs := CleanString(*s)
	if cs == "" {
		return nil
	}
	return &cs
}

// Getwd tries to find the project root, the first parent directory holding a go.mod.
// go-test changes the working directory to the test package being run during tests,
// so the process working directory cannot be trusted for locating config files.
// Falls back to the working directory when no go.mod is found (eg: installed binaries).
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
