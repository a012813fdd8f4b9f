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

// picorpc-codectag injects codec:"<name>" struct tag entries into the
// byte-buffer fields of protobuf-generated Go source, wiring them up for
// tagjson's per-field encodings. It follows the gofmt calling convention:
// results go to stdout unless -w rewrites the files in place or -l lists
// the files that would change.
//
//	picorpc-codectag [flags] [path ...]
//
// Paths are files or directories; directories are walked recursively,
// skipping _test.go files, vendor and testdata trees, and anything matched
// by the config's skip globs. With no paths it processes the current
// directory. A diagnostic in any file fails the whole run without writing
// anything, so a partial batch never reaches disk.
package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/picorpc/picorpc/internal/codectag"
)

type invocation struct {
	codec      string
	write      bool
	list       bool
	configPath string
	verbose    bool
	paths      []string
}

func main() {
	flag.Usage = usage
	codecName := flag.String("codec", "", "apply codec `name` to all structs without a picorpc:codec directive")
	write := flag.Bool("w", false, "write results back to source files instead of stdout")
	list := flag.Bool("l", false, "list files whose contents would change")
	configPath := flag.String("config", "", "YAML config `file` (default .codectag.yaml if present)")
	verbose := flag.Bool("v", false, "verbose progress to stderr")
	flag.Parse()
	inv := &invocation{
		codec:      *codecName,
		write:      *write,
		list:       *list,
		configPath: *configPath,
		verbose:    *verbose,
		paths:      flag.Args(),
	}
	os.Exit(inv.run(os.Stdout, os.Stderr))
}

func usage() {
	fmt.Fprintln(flag.CommandLine.Output(), "usage: picorpc-codectag [flags] [path ...]")
	flag.PrintDefaults()
}

func (inv *invocation) run(stdout, stderr io.Writer) int {
	cfg, err := loadConfig(inv.configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	codecName := cfg.Codec
	if inv.codec != "" {
		codecName = inv.codec
	}
	paths := inv.paths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	files, err := expandPaths(paths, cfg.Skip)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	results, err := codectag.RewriteFiles(files, codectag.Options{DefaultCodec: codecName})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	for _, result := range results {
		if inv.verbose {
			state := "unchanged"
			if result.Changed {
				state = "rewritten"
			}
			fmt.Fprintf(stderr, "%s: %s\n", result.Path, state)
		}
		if inv.list && result.Changed {
			fmt.Fprintln(stdout, result.Path)
		}
		if inv.write && result.Changed {
			if err := overwrite(result.Path, result.Output); err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
		}
		if !inv.list && !inv.write {
			if _, err := stdout.Write(result.Output); err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
		}
	}
	return 0
}

// overwrite replaces a file's contents, keeping its permission bits.
func overwrite(path string, contents []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, contents, info.Mode().Perm())
}

// expandPaths turns the argument list into the ordered set of files to
// rewrite. Explicitly named files are always included; directory walks
// apply the usual exclusions plus the config's skip globs.
func expandPaths(paths, skipGlobs []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		root := path
		err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				if path != root && hiddenDir(entry.Name()) {
					return filepath.SkipDir
				}
				if path != root && matchesAny(skipGlobs, path, entry.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			if matchesAny(skipGlobs, path, entry.Name()) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// hiddenDir reports directories a source walk never descends into.
func hiddenDir(name string) bool {
	return name == "vendor" || name == "testdata" ||
		strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func matchesAny(globs []string, path, base string) bool {
	for _, glob := range globs {
		if ok, err := filepath.Match(glob, base); err == nil && ok {
			return true
		}
		if ok, err := filepath.Match(glob, filepath.ToSlash(path)); err == nil && ok {
			return true
		}
	}
	return false
}
