// # internal/importresolver/stdlib.go
package importresolver

import (
	_ "embed"
	"strings"
)

//go:embed stdlib/python.txt
var stdlibData string

var stdlibModules = map[string]bool{}

func init() {
	for _, line := range strings.Split(stdlibData, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stdlibModules[line] = true
		// Add base name: e.g. urllib.request -> urllib
		parts := strings.Split(line, ".")
		stdlibModules[parts[0]] = true
	}
}

// IsStdlibModule reports whether the dotted module name belongs to the
// standard library. Submodules classify by their top-level package.
func IsStdlibModule(name string) bool {
	if stdlibModules[name] {
		return true
	}
	top, _, _ := strings.Cut(name, ".")
	return stdlibModules[top]
}
