package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/spf13/cobra"

	"github.com/atelier-editor/atelier/pkg/atelier/archive"
	"github.com/atelier-editor/atelier/pkg/atelier/ident"
	"github.com/atelier-editor/atelier/pkg/workspace/engine"
)

// maxImportFileSize skips files too large to be source code.
const maxImportFileSize = 8 << 20

var importCmd = &cobra.Command{
	Use:   "import <project-name> <zip-or-directory>",
	Short: "Import a zip archive or directory as a new project",
	Long: `Create a new project from a zip archive or a directory tree. Directory
imports skip hidden entries and files larger than 8 MiB.`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	name, source := args[0], args[1]

	info, err := os.Stat(source)
	if err != nil {
		printError("reading %s: %v", source, err)
		return err
	}

	var data []byte
	if info.IsDir() {
		data, err = zipDirectory(source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		printError("reading %s: %v", source, err)
		return err
	}

	files, err := archive.Import(data, ident.UUID{})
	if err != nil {
		printError("importing archive: %v", err)
		return err
	}

	st, err := openStore()
	if err != nil {
		printError("%v", err)
		return err
	}
	defer func() { _ = st.Close() }()

	eng := engine.New(st, ident.UUID{})
	id, err := eng.NewProject(name)
	if err != nil {
		printError("creating project: %v", err)
		return err
	}
	if err := eng.Replace(files); err != nil {
		printError("installing files: %v", err)
		return err
	}

	printInfo("Imported %d entries into project %s (%s)", len(files), name, id)
	return nil
}

// zipDirectory builds an in-memory zip of a directory tree so directory
// imports go through the same codec as uploaded archives.
func zipDirectory(root string) ([]byte, error) {
	type entry struct {
		rel     string
		content []byte
	}

	var (
		mu      sync.Mutex
		entries []entry
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		base := filepath.Base(path)
		if base != "." && base[0] == '.' {
			if d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxImportFileSize {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		mu.Lock()
		entries = append(entries, entry{rel: filepath.ToSlash(rel), content: content})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.rel)
		if err != nil {
			return nil, fmt.Errorf("writing %s: %w", e.rel, err)
		}
		if _, err := w.Write(e.content); err != nil {
			return nil, fmt.Errorf("writing %s: %w", e.rel, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
