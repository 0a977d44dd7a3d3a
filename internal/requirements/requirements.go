// Package requirements parses requirements.txt-style version sources into a
// name-to-version-spec mapping. The mapping is computed once per run by the
// orchestrator and passed to whatever needs it; there is no process-lifetime
// cache.
package requirements

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
)

// specPattern matches lines of the form name followed by one or more of
// = > < ~ and a version spec. Anything else (comments, blank lines, URLs,
// editable installs) is ignored.
var specPattern = regexp.MustCompile(`^(?P<name>[_a-zA-Z0-9]+)[=><~]+(?P<version>.+)$`)

// Parse reads every file in paths in order and returns the combined mapping.
// A name appearing in multiple files takes the version from the last file
// that mentions it. A missing or unreadable file is an error.
func Parse(paths []string) (map[string]string, error) {
	versions := make(map[string]string)
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open requirements file: %w", err)
		}
		err = parseInto(f, versions)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read requirements file %s: %w", p, err)
		}
	}
	return versions, nil
}

func parseInto(r io.Reader, versions map[string]string) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := specPattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		versions[m[1]] = m[2]
	}
	return scanner.Err()
}
