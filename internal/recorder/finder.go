// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package recorder

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Find resolves zero or more recording specs against the files in dir.
// A spec could be -
//
//	empty  - the current (newest) recording.
//	CUR~1  - the recording before the newest.
//	-n     - the same thing, as a bare relative index.
//	name   - a file name, prefix matched against the directory.
//	path   - an existing path outside the directory, taken as-is.
//
// Names sort lexically which, given the timestamped naming scheme, is
// also chronological.
func Find(dir string, specs ...string) ([]string, error) {
	names, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	if len(specs) == 0 {
		specs = []string{"CUR~0"}
	}

	var result []string
	for _, s := range specs {
		var index int

		if s == "" {
			s = "CUR~0"
		}

		if strings.HasPrefix(strings.ToUpper(s), "CUR~") {
			parts := strings.Split(s, "~")
			index, err = strconv.Atoi(parts[1])
			if err != nil || index < 0 {
				return nil, fmt.Errorf("bad recording spec %q", s)
			}
		} else if i, err := strconv.Atoi(s); err == nil {
			if i > 0 {
				return nil, fmt.Errorf("spec %q: relative index must be <= 0", s)
			}
			index = -i
		} else if _, err := os.Stat(s); err == nil {
			// An existing path wins over prefix matching.
			result = append(result, s)
			continue
		} else {
			found := false
			// Newest first, so a partial name picks the most recent match.
			for j := len(names) - 1; j >= 0; j-- {
				if strings.HasPrefix(names[j], s) {
					index = len(names) - 1 - j
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("failed to find recording matching %q", s)
			}
		}

		if index > len(names)-1 {
			return nil, fmt.Errorf("index %d out of range for %d recordings", index, len(names))
		}

		result = append(result, names[len(names)-1-index])
	}

	return result, nil
}
