// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package settings manages the reusable visual-reference registry (style,
// characters, world, props) that keeps generated pages consistent. The
// registry is a human-editable JSON document loaded at well-defined
// boundaries: read once at the start of a run, written only on explicit
// upsert.
package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// Categories is the fixed category set, in canonical order.
var Categories = []string{"style", "characters", "world", "props"}

const (
	settingsDirName  = "settings"
	settingsFileName = "settings.json"
)

// Entry is one named reference: a description used as prompt context and
// zero or more reference image paths (relative to the project base dir).
type Entry struct {
	Name        string   `json:"-"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
}

// Registry holds all categories with entries in insertion order. Category
// resolution returns entries in the order they were defined, so the
// document cannot round-trip through an unordered map.
type Registry struct {
	path string
	cats map[string][]*Entry
}

// FilePath returns the registry location under baseDir.
func FilePath(baseDir string) string {
	return filepath.Join(baseDir, settingsDirName, settingsFileName)
}

// DirPath returns the settings directory under baseDir.
func DirPath(baseDir string) string {
	return filepath.Join(baseDir, settingsDirName)
}

// validCategory reports whether name is one of the fixed categories.
func validCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Init creates the settings folder structure and an empty registry
// document under baseDir. An existing registry is left untouched.
func Init(baseDir string) (created bool, err error) {
	path := FilePath(baseDir)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	for _, cat := range Categories {
		if err := os.MkdirAll(filepath.Join(DirPath(baseDir), cat), 0o755); err != nil {
			return false, fmt.Errorf("creating category directory %s: %w", cat, err)
		}
	}

	r := &Registry{path: path, cats: emptyCategories()}
	if err := r.Save(); err != nil {
		return false, err
	}
	return true, nil
}

func emptyCategories() map[string][]*Entry {
	cats := make(map[string][]*Entry, len(Categories))
	for _, c := range Categories {
		cats[c] = nil
	}
	return cats
}

// Load reads the registry document under baseDir. A missing document
// yields an empty registry so generation runs work without settings.
func Load(baseDir string) (*Registry, error) {
	path := FilePath(baseDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{path: path, cats: emptyCategories()}, nil
		}
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}

	cats, err := decodeOrdered(data)
	if err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	return &Registry{path: path, cats: cats}, nil
}

// decodeOrdered parses the two-level JSON document with a token walk so
// entry order within each category survives the round trip.
func decodeOrdered(data []byte) (map[string][]*Entry, error) {
	cats := emptyCategories()
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected top-level object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		category := tok.(string)
		if !validCategory(category) {
			return nil, fmt.Errorf("unknown category %q", category)
		}

		tok, err = dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, fmt.Errorf("category %q: expected object", category)
		}

		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			name := tok.(string)

			var e Entry
			if err := dec.Decode(&e); err != nil {
				return nil, fmt.Errorf("entry %s.%s: %w", category, name, err)
			}
			e.Name = name
			cats[category] = append(cats[category], &e)
		}
		if _, err := dec.Token(); err != nil { // closing }
			return nil, err
		}
	}
	return cats, nil
}

// Save writes the registry document, categories in canonical order and
// entries in insertion order, via a temp file renamed on success.
func (r *Registry) Save() error {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for ci, cat := range Categories {
		fmt.Fprintf(&buf, "  %q: {", cat)
		entries := r.cats[cat]
		for ei, e := range entries {
			if ei > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString("\n    ")
			nameJSON, _ := json.Marshal(e.Name)
			entryJSON, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("marshaling entry %s.%s: %w", cat, e.Name, err)
			}
			buf.Write(nameJSON)
			buf.WriteString(": ")
			buf.Write(entryJSON)
		}
		if len(entries) > 0 {
			buf.WriteString("\n  ")
		}
		buf.WriteByte('}')
		if ci < len(Categories)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(r.path), ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(buf.Bytes())
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing settings: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Resolve looks up a reference: "category" returns every entry in that
// category in insertion order, "category.name" the single matching entry.
// Unknown categories and names wrap types.ErrNotFound.
func (r *Registry) Resolve(ref string) ([]*Entry, error) {
	category, name, hasName := strings.Cut(ref, ".")
	if !validCategory(category) {
		return nil, fmt.Errorf("settings category %q: %w", category, types.ErrNotFound)
	}

	entries := r.cats[category]
	if !hasName {
		return entries, nil
	}

	for _, e := range entries {
		if e.Name == name {
			return []*Entry{e}, nil
		}
	}
	return nil, fmt.Errorf("settings entry %q in %s: %w", name, category, types.ErrNotFound)
}

// ResolveAll resolves a list of references into prompt context texts
// ("[category/name: description]") and reference image paths joined onto
// baseDir. Image paths that do not exist on disk are dropped: the
// registry may legitimately be ahead of the generated reference images.
func (r *Registry) ResolveAll(refs []string, baseDir string) (texts []string, images []string, err error) {
	for _, ref := range refs {
		entries, err := r.Resolve(ref)
		if err != nil {
			return nil, nil, err
		}
		category, _, _ := strings.Cut(ref, ".")
		for _, e := range entries {
			if e.Description != "" {
				texts = append(texts, fmt.Sprintf("[%s/%s: %s]", category, e.Name, e.Description))
			}
			for _, img := range e.Images {
				full := filepath.Join(baseDir, img)
				if _, statErr := os.Stat(full); statErr == nil {
					images = append(images, full)
				}
			}
		}
	}
	return texts, images, nil
}

// Upsert inserts or updates an entry and persists the registry. New
// images are appended; images already on the entry are skipped.
func (r *Registry) Upsert(category, name, description string, images []string) error {
	if !validCategory(category) {
		return fmt.Errorf("settings category %q: %w", category, types.ErrNotFound)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("entry name is required")
	}

	var entry *Entry
	for _, e := range r.cats[category] {
		if e.Name == name {
			entry = e
			break
		}
	}
	if entry == nil {
		// Images serializes as [] rather than null to keep the document
		// shape stable for hand editing.
		entry = &Entry{Name: name, Images: []string{}}
		r.cats[category] = append(r.cats[category], entry)
	}

	if description != "" {
		entry.Description = description
	}
	for _, img := range images {
		exists := false
		for _, have := range entry.Images {
			if have == img {
				exists = true
				break
			}
		}
		if !exists {
			entry.Images = append(entry.Images, img)
		}
	}

	return r.Save()
}

// Entries returns the entries of one category in insertion order.
func (r *Registry) Entries(category string) []*Entry {
	return r.cats[category]
}
