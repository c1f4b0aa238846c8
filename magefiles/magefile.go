//go:build mage

// Package main contains Mage build targets for org2anki developer tooling.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/org2anki/pkg/types"
)

const (
	binDir  = "bin"
	binName = "org2anki"
	cmdPkg  = "./cmd/org2anki"

	sampleSrc  = "testdata/sample"
	sampleDest = "out/sample"

	configFile = "org2anki.yaml"
)

// Init writes a starter org2anki.yaml with every setting at its default.
func Init() error {
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("%s already exists", configFile)
	}
	cfg := types.ConvertConfig{}.WithDefaults()
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(configFile, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", configFile, err)
	}
	fmt.Println("Wrote", configFile)
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Sample converts the sample notes in testdata/sample into out/sample,
// copying images into out/sample/media.
func Sample() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "convert", "--recursive",
		"--media-dir", filepath.Join(sampleDest, "media"),
		sampleSrc, sampleDest)
}

// Clean removes build and sample output.
func Clean() error {
	for _, dir := range []string{binDir, "out"} {
		if err := sh.Rm(dir); err != nil {
			return err
		}
	}
	return nil
}

// Stats prints project metrics: Go production/test lines and the size of
// the sample notes.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}
	orgFiles, headings, err := countOrg(sampleSrc)
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	fmt.Printf("Sample notes:                   %d file(s), %d heading(s)\n", orgFiles, headings)
	return nil
}

// skipDir reports whether a directory is outside the build: hidden,
// underscore-prefixed, testdata, or build output.
func skipDir(path string, info os.FileInfo) bool {
	name := info.Name()
	if path == "." {
		return false
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
		name == "testdata" || name == binDir || name == "out"
}

// countGoLines walks the directory tree and counts non-blank lines in Go files.
// If testOnly is true, count only _test.go files; otherwise count non-test .go files.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if skipDir(path, info) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		if testOnly != strings.HasSuffix(path, "_test.go") {
			return nil
		}
		n, err := countLines(path, func(line string) bool { return line != "" })
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	return total, err
}

// countOrg counts org files under root and the heading lines in them.
func countOrg(root string) (files, headings int, err error) {
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".org" {
			return nil
		}
		n, err := countLines(path, func(line string) bool { return strings.HasPrefix(line, "*") })
		if err != nil {
			return err
		}
		files++
		headings += n
		return nil
	})
	return files, headings, err
}

// countLines counts the trimmed lines of the file at path that match keep.
func countLines(path string, keep func(string) bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if keep(strings.TrimSpace(sc.Text())) {
			n++
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return n, nil
}
