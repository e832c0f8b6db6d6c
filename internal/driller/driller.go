// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package driller

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// indexedSegment matches a path segment with an explicit array index, eg.
// variables[2].
var indexedSegment = regexp.MustCompile(`^(.*?)\[(\d+)\]$`)

// Driller resolves a dotted path against a JSON document.  It extends plain
// gjson paths in two ways: segments may carry an explicit [n] array index,
// and single-element arrays are drilled through transparently so that
// doc.readings.value works whether readings is an object or a one-element
// list.  A multi-element array with no index is returned as-is.
func Driller(doc string, path string) gjson.Result {
	result := gjson.Parse(doc)

	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			continue
		}

		key := segment
		index := -1
		if m := indexedSegment.FindStringSubmatch(segment); m != nil {
			key = m[1]
			index, _ = strconv.Atoi(m[2])
		}

		// A continuing path unwraps a single-element array first.
		if result.IsArray() {
			if arr := result.Array(); len(arr) == 1 {
				result = arr[0]
			}
		}

		if key != "" {
			result = result.Get(key)
		}

		if index >= 0 {
			result = result.Get(strconv.Itoa(index))
		}

		if !result.Exists() {
			return result
		}
	}

	// A trailing single-element array unwraps to its element.
	if result.IsArray() {
		if arr := result.Array(); len(arr) == 1 {
			result = arr[0]
		}
	}

	return result
}
