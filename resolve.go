package cimage

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/pkg/errors"
)

// DefaultExtensions are the recognized image extensions, in discovery order
var DefaultExtensions = []string{"bmp", "gif", "ico", "jpeg", "png", "tiff"}

// Resolver expands command line inputs into image entries
type Resolver struct {
	// Extensions matched case-insensitively inside directories, in order.
	// Empty means DefaultExtensions.
	Extensions []string
	// Probe reads image dimensions; defaults to Probe.
	Probe func(path string) (int, int, error)
	// Logger receives skip warnings; defaults to the apex/log package logger.
	Logger log.Interface
}

// Resolve expands inputs with the default resolver
func Resolve(inputs []string) ([]ImageEntry, error) {
	return (&Resolver{}).Resolve(inputs)
}

// Resolve expands each input in order. Directories contribute their immediate
// files matching an extension, extension by extension and in name order within
// each one; any other input is a candidate itself. Candidates that fail to probe
// are skipped with a warning.
func (r *Resolver) Resolve(inputs []string) ([]ImageEntry, error) {
	probe := r.Probe
	if probe == nil {
		probe = Probe
	}
	logger := r.Logger
	if logger == nil {
		logger = log.Log
	}

	var entries []ImageEntry
	for _, input := range inputs {
		candidates, err := r.candidates(input)
		if err != nil {
			logger.WithField("path", input).WithError(err).Warn("skipping input")
			continue
		}
		for _, path := range candidates {
			w, h, err := probe(path)
			if err != nil {
				logger.WithField("path", path).WithError(err).Warn("skipping file")
				continue
			}
			entries = append(entries, ImageEntry{Path: path, Width: w, Height: h})
		}
	}

	if len(entries) == 0 {
		return nil, errors.WithStack(&NoImagesFoundError{Inputs: inputs})
	}
	return entries, nil
}

func (r *Resolver) candidates(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil || !info.IsDir() {
		// let the prober report missing or unreadable files
		return []string{input}, nil
	}

	dirEntries, err := os.ReadDir(input)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory %s", input)
	}

	exts := r.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	var out []string
	for _, ext := range exts {
		ext = strings.TrimPrefix(ext, ".")
		var matched []string
		for _, de := range dirEntries {
			if de.IsDir() {
				continue
			}
			if hasExtension(de.Name(), ext) {
				matched = append(matched, filepath.Join(input, de.Name()))
			}
		}
		sort.Strings(matched)
		out = append(out, matched...)
	}
	return out, nil
}

func hasExtension(name, ext string) bool {
	fileExt := filepath.Ext(name)
	if fileExt == "" {
		return false
	}
	return strings.EqualFold(fileExt[1:], ext)
}
