// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"sort"
	"strings"
)

// SortDataset sorts rows in place per the --sort spec.  The spec is a comma
// separated list of output keys, each optionally prefixed with '-' for a
// descending sort and/or '!' for case-sensitive comparison.  String compares
// are case-insensitive by default; values that both parse as numbers compare
// numerically.
func SortDataset(dataset []map[string]interface{}, spec string) {
	if spec == "" || len(dataset) == 0 {
		return
	}

	type sortKey struct {
		key        string
		descending bool
		caseExact  bool
	}

	//nolint:prealloc
	var keys []sortKey
	for _, k := range strings.Split(spec, ",") {
		k = strings.TrimSpace(k)
		sk := sortKey{}
		for {
			if strings.HasPrefix(k, "-") {
				sk.descending = true
				k = k[1:]
				continue
			}
			if strings.HasPrefix(k, "!") {
				sk.caseExact = true
				k = k[1:]
				continue
			}
			break
		}
		if k == "" {
			continue
		}
		sk.key = k
		keys = append(keys, sk)
	}

	if len(keys) == 0 {
		return
	}

	sort.SliceStable(dataset, func(i, j int) bool {
		for _, sk := range keys {
			iv := dataset[i][sk.key]
			jv := dataset[j][sk.key]

			// Numeric compare when both sides are numeric.
			if ni, iok := toFloat64(iv); iok {
				if nj, jok := toFloat64(jv); jok {
					if ni == nj {
						continue
					}
					return (ni < nj) != sk.descending
				}
			}

			is := InterfaceToString(iv)
			js := InterfaceToString(jv)
			if !sk.caseExact {
				is = strings.ToLower(is)
				js = strings.ToLower(js)
			}

			if is == js {
				continue
			}
			return (is < js) != sk.descending
		}
		return false
	})
}

// toFloat64 attempts to normalize various numeric types to float64.
// Returns (0, false) if v is not a recognized numeric type.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
