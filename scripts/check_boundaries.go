package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "agora"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

func main() {
	violations, err := collectViolations("contexts")
	if err != nil {
		fmt.Fprintf(os.Stderr, "boundary check failed: %v\n", err)
		os.Exit(1)
	}
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File == violations[j].File {
			if violations[i].Line == violations[j].Line {
				return violations[i].Import < violations[j].Import
			}
			return violations[i].Line < violations[j].Line
		}
		return violations[i].File < violations[j].File
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

// collectViolations walks root, the contexts directory, and checks every
// non-test Go file of each service against its layer rules.
func collectViolations(root string) ([]violation, error) {
	var violations []violation

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		normalized := "contexts/" + filepath.ToSlash(rel)
		parts := strings.Split(normalized, "/")
		if len(parts) < 4 {
			return nil
		}

		contextName := parts[1]
		serviceName := parts[2]
		layer := parts[3]
		component := ""
		if len(parts) > 5 {
			component = parts[4]
		}
		modulePrefix := fmt.Sprintf("%s/contexts/%s/%s", modulePath, contextName, serviceName)

		fileViolations := validateFile(path, normalized, layer, component, modulePrefix)
		violations = append(violations, fileViolations...)
		return nil
	})

	return violations, err
}

func validateFile(path string, normalizedPath string, layer string, component string, modulePrefix string) []violation {
	var violations []violation

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return append(violations, violation{
			File: normalizedPath,
			Line: 1,
			Rule: "file must parse",
		})
	}

	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line

		if strings.HasPrefix(importPath, modulePath+"/contexts/") && !hasPrefix(importPath, modulePrefix) {
			violations = append(violations, violation{
				File:   normalizedPath,
				Line:   line,
				Import: importPath,
				Rule:   "cross-module imports are forbidden",
			})
		}

		switch layer {
		case "domain":
			violations = append(violations, validateDomainImport(normalizedPath, line, importPath, modulePrefix)...)
		case "application":
			violations = append(violations, validateApplicationImport(normalizedPath, line, importPath, modulePrefix)...)
		case "ports":
			violations = append(violations, validatePortsImport(normalizedPath, line, importPath, modulePrefix)...)
		case "adapters":
			violations = append(violations, validateAdapterImport(normalizedPath, line, importPath, component, modulePrefix)...)
		case "transport":
			violations = append(violations, validateTransportImport(normalizedPath, line, importPath, modulePrefix)...)
		}
	}

	return violations
}

func validateDomainImport(file string, line int, importPath string, modulePrefix string) []violation {
	var violations []violation

	if strings.Contains(importPath, "/adapters/") {
		violations = append(violations, violation{
			File:   file,
			Line:   line,
			Import: importPath,
			Rule:   "domain must not import adapters",
		})
	}

	if isInfrastructure(importPath) {
		violations = append(violations, violation{
			File:   file,
			Line:   line,
			Import: importPath,
			Rule:   "domain must not import runtime infrastructure",
		})
	}

	allowed := []string{
		modulePrefix + "/domain",
	}
	if !isStdlib(importPath) && !isAllowed(importPath, allowed) {
		violations = append(violations, violation{
			File:   file,
			Line:   line,
			Import: importPath,
			Rule:   "domain import is outside explicit allowlist",
		})
	}

	return violations
}

func validateApplicationImport(file string, line int, importPath string, modulePrefix string) []violation {
	var violations []violation

	if strings.Contains(importPath, "/adapters/") {
		violations = append(violations, violation{
			File:   file,
			Line:   line,
			Import: importPath,
			Rule:   "application must not import adapters",
		})
	}

	if isInfrastructure(importPath) {
		violations = append(violations, violation{
			File:   file,
			Line:   line,
			Import: importPath,
			Rule:   "application must not import runtime infrastructure",
		})
	}

	allowed := []string{
		modulePrefix + "/application",
		modulePrefix + "/domain",
		modulePrefix + "/ports",
	}
	if !isStdlib(importPath) && !isAllowed(importPath, allowed) {
		violations = append(violations, violation{
			File:   file,
			Line:   line,
			Import: importPath,
			Rule:   "application import is outside explicit allowlist",
		})
	}

	return violations
}

// Ports describe what the use cases need; they may only speak in domain
// types.
func validatePortsImport(file string, line int, importPath string, modulePrefix string) []violation {
	allowed := []string{
		modulePrefix + "/domain",
	}
	if isStdlib(importPath) || isAllowed(importPath, allowed) {
		return nil
	}
	return []violation{{
		File:   file,
		Line:   line,
		Import: importPath,
		Rule:   "ports may only import domain packages",
	}}
}

// Adapters are wired together only in module.go. Storage and delivery
// adapters implement ports and never call the use cases.
func validateAdapterImport(file string, line int, importPath string, component string, modulePrefix string) []violation {
	var violations []violation

	adapters := modulePrefix + "/adapters"
	if hasPrefix(importPath, adapters) && !hasPrefix(importPath, adapters+"/"+component) {
		violations = append(violations, violation{
			File:   file,
			Line:   line,
			Import: importPath,
			Rule:   "adapters must not import other adapters",
		})
	}

	if isInfrastructure(importPath) {
		violations = append(violations, violation{
			File:   file,
			Line:   line,
			Import: importPath,
			Rule:   "adapters must not import runtime infrastructure",
		})
	}

	if component != "http" &&
		(hasPrefix(importPath, modulePrefix+"/application/commands") || hasPrefix(importPath, modulePrefix+"/application/queries")) {
		violations = append(violations, violation{
			File:   file,
			Line:   line,
			Import: importPath,
			Rule:   "only the http adapter may call use cases",
		})
	}

	return violations
}

// Transport holds wire DTOs and the error mapping; it sees domain errors and
// entities only.
func validateTransportImport(file string, line int, importPath string, modulePrefix string) []violation {
	if !hasPrefix(importPath, modulePath) || hasPrefix(importPath, modulePrefix+"/domain") {
		return nil
	}
	return []violation{{
		File:   file,
		Line:   line,
		Import: importPath,
		Rule:   "transport may only import domain packages",
	}}
}

func isInfrastructure(importPath string) bool {
	return hasPrefix(importPath, modulePath+"/internal") || hasPrefix(importPath, modulePath+"/cmd")
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
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
