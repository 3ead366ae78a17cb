// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks the translation catalogues against the source tree. It
// reports keys passed to i18n.T that the primary locale lacks, keys a
// secondary locale lacks, keys nothing references, and translations whose
// printf verbs differ from the primary locale.
//
// Run from the repository root:
//
//	go run ./tools/i18n-linter
package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
	projectRoot   = "."
)

var (
	// i18n.T("some.key", ...)
	callRe = regexp.MustCompile(`i18n\.T\("([^"]+)"`)
	// Dotted literals such as "errors.auth_failed" kept in tables.
	literalRe = regexp.MustCompile(`"([a-z_]+(?:\.[a-z_]+)+)"`)
	verbRe    = regexp.MustCompile(`%[-+# 0]*\d*(?:\.\d+)?[a-zA-Z%]`)
)

// report collects findings. Missing keys and verb mismatches fail the run;
// orphans only warn.
type report struct {
	undefined  []string            // used in code, absent from the primary locale
	missing    map[string][]string // locale file -> keys absent there
	orphaned   []string            // in the primary locale, never referenced
	mismatched map[string][]string // locale file -> keys with different verbs
}

func (r *report) failed() bool {
	if len(r.undefined) > 0 {
		return true
	}
	for _, keys := range r.missing {
		if len(keys) > 0 {
			return true
		}
	}
	for _, keys := range r.mismatched {
		if len(keys) > 0 {
			return true
		}
	}
	return false
}

func main() {
	os.Exit(run(projectRoot, filepath.Join(projectRoot, localesDir), os.Stdout))
}

func run(root, locales string, out io.Writer) int {
	r, err := lint(root, locales)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return 1
	}
	r.print(out)
	if r.failed() {
		return 1
	}
	return 0
}

func lint(root, locales string) (*report, error) {
	called, mentioned, err := findUsedKeys(root)
	if err != nil {
		return nil, fmt.Errorf("scan sources: %w", err)
	}
	primary, err := loadLocale(filepath.Join(locales, primaryLocale))
	if err != nil {
		return nil, fmt.Errorf("load primary locale: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(locales, "*.yaml"))
	if err != nil {
		return nil, err
	}

	r := &report{missing: map[string][]string{}, mismatched: map[string][]string{}}
	for key := range called {
		if _, ok := primary[key]; !ok {
			r.undefined = append(r.undefined, key)
		}
	}
	for key := range primary {
		_, c := called[key]
		_, m := mentioned[key]
		if !c && !m {
			r.orphaned = append(r.orphaned, key)
		}
	}

	for _, file := range files {
		name := filepath.Base(file)
		if name == primaryLocale {
			continue
		}
		secondary, err := loadLocale(file)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		for key, text := range primary {
			other, ok := secondary[key]
			if !ok {
				r.missing[name] = append(r.missing[name], key)
				continue
			}
			if !sameVerbs(text, other) {
				r.mismatched[name] = append(r.mismatched[name], key)
			}
		}
		sort.Strings(r.missing[name])
		sort.Strings(r.mismatched[name])
	}
	sort.Strings(r.undefined)
	sort.Strings(r.orphaned)
	return r, nil
}

func (r *report) print(out io.Writer) {
	section := func(title string, keys []string) {
		fmt.Fprintf(out, "--- %s ---\n", title)
		if len(keys) == 0 {
			fmt.Fprintln(out, "  none")
		}
		for _, k := range keys {
			fmt.Fprintf(out, "  - %s\n", k)
		}
	}
	section("Undefined keys (used in code, missing from "+primaryLocale+")", r.undefined)
	for _, name := range sortedKeys(r.missing) {
		section("Missing keys in "+name, r.missing[name])
	}
	for _, name := range sortedKeys(r.mismatched) {
		section("Format verbs differ in "+name, r.mismatched[name])
	}
	section("Orphaned keys (never referenced)", r.orphaned)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// findUsedKeys scans non-test Go files. called holds keys passed directly to
// i18n.T; mentioned holds dotted string literals that may be looked up
// indirectly.
func findUsedKeys(root string) (called, mentioned map[string]struct{}, err error) {
	called = map[string]struct{}{}
	mentioned = map[string]struct{}{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case "tools", "_examples", ".git":
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, m := range callRe.FindAllStringSubmatch(string(content), -1) {
			called[m[1]] = struct{}{}
		}
		for _, m := range literalRe.FindAllStringSubmatch(string(content), -1) {
			mentioned[m[1]] = struct{}{}
		}
		return nil
	})
	return called, mentioned, err
}

// loadLocale reads a YAML catalogue into a flat key -> text map.
func loadLocale(path string) (map[string]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	out := map[string]string{}
	flatten("", data, out)
	return out, nil
}

func flatten(prefix string, node any, out map[string]string) {
	switch v := node.(type) {
	case map[string]any:
		for k, val := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(key, val, out)
		}
	default:
		if prefix != "" {
			out[prefix] = fmt.Sprint(v)
		}
	}
}

// sameVerbs reports whether a and b use the same printf verbs in order.
func sameVerbs(a, b string) bool {
	va, vb := verbRe.FindAllString(a, -1), verbRe.FindAllString(b, -1)
	if len(va) != len(vb) {
		return false
	}
	for i := range va {
		if va[i] != vb[i] {
			return false
		}
	}
	return true
}
