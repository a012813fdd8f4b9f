// Copyright 2026 The PicoRPC Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tagjson

import (
	"reflect"
	"sort"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"
)

// structField describes one JSON-visible field of a struct type, with the
// codec tag (if any) already extracted.
type structField struct {
	name      string // JSON object key
	index     []int  // path for reflect's FieldByIndex
	typ       reflect.Type
	codecName string // from codec:"name", empty when untagged
	omitEmpty bool
	omitZero  bool
	quoted    bool // the ",string" option, scalars only
	tagged    bool // json tag supplied an explicit name
}

// Reflection over struct types is expensive, so both the field table and
// the codec-reachability answer are cached per type, concurrent-safe.
var (
	fieldsCache = xsync.NewMap[reflect.Type, []structField]()
	reachCache  = xsync.NewMap[reflect.Type, bool]()
)

// typeFields returns the JSON-visible fields of t in the order encoding/json
// would emit them, flattening embedded structs and resolving name conflicts
// the same way: the shallowest field wins, an explicit json tag breaks ties,
// and unresolvable conflicts drop the name entirely.
func typeFields(t reflect.Type) []structField {
	if cached, ok := fieldsCache.Load(t); ok {
		return cached
	}
	fields := scanFields(t)
	fieldsCache.Store(t, fields)
	return fields
}

type scanTarget struct {
	typ   reflect.Type
	index []int
}

func scanFields(t reflect.Type) []structField {
	var fields []structField
	var current, next []scanTarget
	next = append(next, scanTarget{typ: t})
	visited := map[reflect.Type]bool{}
	for len(next) > 0 {
		current, next = next, current[:0]
		for _, target := range current {
			if visited[target.typ] {
				continue
			}
			visited[target.typ] = true
			for i := 0; i < target.typ.NumField(); i++ {
				sf := target.typ.Field(i)
				if !sf.IsExported() {
					continue
				}
				tag := sf.Tag.Get("json")
				if tag == "-" {
					continue
				}
				name, opts := parseTag(tag)
				index := make([]int, len(target.index)+1)
				copy(index, target.index)
				index[len(target.index)] = i
				embedded := sf.Type
				if embedded.Kind() == reflect.Pointer {
					embedded = embedded.Elem()
				}
				if name == "" && sf.Anonymous && embedded.Kind() == reflect.Struct {
					next = append(next, scanTarget{typ: embedded, index: index})
					continue
				}
				tagged := name != ""
				if name == "" {
					name = sf.Name
				}
				fields = append(fields, structField{
					name:      name,
					index:     index,
					typ:       sf.Type,
					codecName: sf.Tag.Get("codec"),
					omitEmpty: opts.contains("omitempty"),
					omitZero:  opts.contains("omitzero"),
					quoted:    opts.contains("string") && quotable(sf.Type.Kind()),
					tagged:    tagged,
				})
			}
		}
	}
	return resolveConflicts(fields)
}

// resolveConflicts keeps at most one field per JSON name. Ordering within a
// name group is shallowest first, then explicitly tagged first; the group's
// head wins unless the runner-up ties on both counts, in which case the
// whole group is dropped.
func resolveConflicts(fields []structField) []structField {
	byName := map[string][]structField{}
	for _, f := range fields {
		byName[f.name] = append(byName[f.name], f)
	}
	kept := fields[:0]
	for _, group := range byName {
		sort.SliceStable(group, func(i, j int) bool {
			if len(group[i].index) != len(group[j].index) {
				return len(group[i].index) < len(group[j].index)
			}
			return group[i].tagged && !group[j].tagged
		})
		if len(group) > 1 &&
			len(group[0].index) == len(group[1].index) &&
			group[0].tagged == group[1].tagged {
			continue
		}
		kept = append(kept, group[0])
	}
	sort.Slice(kept, func(i, j int) bool {
		return lessIndex(kept[i].index, kept[j].index)
	})
	return kept
}

func lessIndex(a, b []int) bool {
	for k := 0; k < len(a) && k < len(b); k++ {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return len(a) < len(b)
}

type tagOptions string

func parseTag(tag string) (string, tagOptions) {
	name, opts, _ := strings.Cut(tag, ",")
	return name, tagOptions(opts)
}

func (o tagOptions) contains(option string) bool {
	for o != "" {
		var head string
		head, o = splitOption(string(o))
		if head == option {
			return true
		}
	}
	return false
}

func splitOption(s string) (string, tagOptions) {
	head, rest, _ := strings.Cut(s, ",")
	return head, tagOptions(rest)
}

func quotable(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// codecReachable reports whether a codec-tagged field can occur anywhere in
// a value of type t. Types where it cannot are handed to encoding/json
// wholesale, which keeps tagjson's output byte-identical to the standard
// library for untagged data.
func codecReachable(t reflect.Type) bool {
	if cached, ok := reachCache.Load(t); ok {
		return cached
	}
	reachable := scanReachable(t, map[reflect.Type]bool{})
	reachCache.Store(t, reachable)
	return reachable
}

func scanReachable(t reflect.Type, visiting map[reflect.Type]bool) bool {
	if visiting[t] {
		return false
	}
	visiting[t] = true
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return scanReachable(t.Elem(), visiting)
	case reflect.Map:
		// Map keys cannot carry struct tags, only values matter.
		return scanReachable(t.Elem(), visiting)
	case reflect.Interface:
		// The dynamic type is unknown, assume the worst.
		return true
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			if sf.Tag.Get("json") == "-" {
				continue
			}
			if sf.Tag.Get("codec") != "" {
				return true
			}
			if scanReachable(sf.Type, visiting) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
