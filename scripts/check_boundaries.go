package main

import (
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

const (
	moduleName     = "tally"
	contextsPrefix = moduleName + "/contexts/"
)

var (
	identity = []string{"github.com/ethereum/go-ethereum/common"}
	storage  = []string{"github.com/google/uuid", "github.com/jackc/pgx/v5", "gorm.io/gorm"}
)

// layerRule lists what a package under Layer (relative to its service root)
// may import. Internal entries are service-relative; External entries are
// third-party prefixes. The standard library is always allowed.
type layerRule struct {
	Layer    string
	Internal []string
	External []string
}

var layerRules = []layerRule{
	{Layer: "domain", Internal: []string{"domain"}, External: identity},
	{Layer: "ports", Internal: []string{"domain"}, External: identity},
	{Layer: "application", Internal: []string{"application", "domain", "ports"}, External: identity},
	{Layer: "adapters/memory", Internal: []string{"domain", "ports"}, External: append(append([]string{}, identity...), "github.com/google/uuid")},
	{Layer: "adapters/postgres", Internal: []string{"domain", "ports"}, External: append(append([]string{}, identity...), storage...)},
	{Layer: "adapters/http", Internal: []string{"application", "domain", "transport/http"}, External: identity},
	{Layer: "transport/http"},
	{Layer: "", Internal: []string{"adapters/http", "adapters/memory", "application", "domain", "ports"}, External: identity},
}

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

func main() {
	violations, err := collectViolations(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "boundary check failed: %v\n", err)
		os.Exit(2)
	}
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

// collectViolations loads every package under contexts/ from the module at
// dir and checks each non-test file against the rule for its layer.
func collectViolations(dir string) ([]violation, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve module dir: %w", err)
	}
	pkgs, err := packages.Load(&packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedImports,
		Dir:  dir,
	}, "./contexts/...")
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, errors.New("no packages found under contexts/")
	}

	var violations []violation
	for _, pkg := range pkgs {
		for _, pkgErr := range pkg.Errors {
			violations = append(violations, violation{File: pkg.PkgPath, Rule: "package must load: " + pkgErr.Msg})
		}
		servicePrefix, layer, ok := splitContextPackage(pkg.PkgPath)
		if !ok {
			continue
		}
		rule, ok := ruleFor(layer)
		if !ok {
			violations = append(violations, violation{File: pkg.PkgPath, Rule: "package is not covered by a layer rule"})
			continue
		}
		for _, file := range pkg.GoFiles {
			display := file
			if rel, err := filepath.Rel(dir, file); err == nil {
				display = filepath.ToSlash(rel)
			}
			violations = append(violations, validateFile(file, display, rule, servicePrefix)...)
		}
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File != violations[j].File {
			return violations[i].File < violations[j].File
		}
		if violations[i].Line != violations[j].Line {
			return violations[i].Line < violations[j].Line
		}
		return violations[i].Import < violations[j].Import
	})
	return violations, nil
}

// splitContextPackage turns tally/contexts/<context>/<service>/<layer...>
// into the service import prefix and the service-relative layer path.
func splitContextPackage(pkgPath string) (string, string, bool) {
	rest, ok := strings.CutPrefix(pkgPath, contextsPrefix)
	if !ok {
		return "", "", false
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 2 {
		return "", "", false
	}
	servicePrefix := contextsPrefix + parts[0] + "/" + parts[1]
	if len(parts) == 2 {
		return servicePrefix, "", true
	}
	return servicePrefix, parts[2], true
}

// ruleFor picks the most specific rule whose layer contains the package.
func ruleFor(layer string) (layerRule, bool) {
	var (
		best  layerRule
		found bool
	)
	for _, rule := range layerRules {
		if rule.Layer == "" {
			if layer == "" {
				return rule, true
			}
			continue
		}
		if hasPrefix(layer, rule.Layer) && (!found || len(rule.Layer) > len(best.Layer)) {
			best, found = rule, true
		}
	}
	return best, found
}

func validateFile(path string, displayPath string, rule layerRule, servicePrefix string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: displayPath, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		if reason, ok := checkImport(rule, servicePrefix, importPath); !ok {
			violations = append(violations, violation{
				File:   displayPath,
				Line:   fset.Position(imp.Pos()).Line,
				Import: importPath,
				Rule:   reason,
			})
		}
	}
	return violations
}

// checkImport reports whether importPath is allowed for a package governed by
// rule and, if not, which boundary it crosses.
func checkImport(rule layerRule, servicePrefix string, importPath string) (string, bool) {
	name := rule.Layer
	if name == "" {
		name = "module root"
	}

	switch {
	case isStdlib(importPath):
		return "", true
	case hasPrefix(importPath, servicePrefix):
		target := strings.TrimPrefix(strings.TrimPrefix(importPath, servicePrefix), "/")
		if target == "" || !isAllowed(target, rule.Internal) {
			return fmt.Sprintf("%s must not import %s", name, displayTarget(target)), false
		}
		return "", true
	case strings.HasPrefix(importPath, contextsPrefix):
		return "cross-module imports are forbidden", false
	case strings.HasPrefix(importPath, moduleName+"/"):
		return name + " must not import runtime infrastructure", false
	case !isAllowed(importPath, rule.External):
		return name + " import is outside explicit allowlist", false
	}
	return "", true
}

func displayTarget(target string) string {
	if target == "" {
		return "the module root"
	}
	return target
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowedPrefixes []string) bool {
	for _, p := range allowedPrefixes {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string) bool {
	if strings.HasPrefix(importPath, moduleName+"/") {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
