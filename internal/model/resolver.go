// Package model resolves model references against a local HuggingFace-style
// cache and lists what is available for deployment.
package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveOptions select one snapshot of a cached model.
type ResolveOptions struct {
	// Name is the hub reference, e.g. "meta-llama/Llama-2-7b-hf".
	Name string
	// Revision names a ref (branch or tag) recorded in the cache. Ignored
	// when Snapshot is set.
	Revision string
	// Snapshot pins an exact snapshot hash.
	Snapshot string
}

// Resolve maps a model reference to the snapshot directory holding its
// weights, following the cache layout models--<org>--<name>/refs/<revision>
// -> snapshots/<hash>.
func Resolve(modelDir string, opts ResolveOptions) (string, error) {
	if opts.Name == "" {
		return "", fmt.Errorf("model name is required")
	}
	base := filepath.Join(modelDir, cacheDirName(opts.Name))
	if _, err := os.Stat(base); err != nil {
		return "", fmt.Errorf("model %s not found in %s: %w", opts.Name, modelDir, err)
	}

	snapshot := opts.Snapshot
	if snapshot == "" {
		revision := opts.Revision
		if revision == "" {
			revision = "main"
		}
		refPath := filepath.Join(base, "refs", revision)
		data, err := os.ReadFile(refPath)
		if err != nil {
			return "", fmt.Errorf("revision %s of model %s has no ref file: %w", revision, opts.Name, err)
		}
		snapshot = strings.TrimSpace(string(data))
		if snapshot == "" {
			return "", fmt.Errorf("ref file %s is empty", refPath)
		}
	}

	weightDir := filepath.Join(base, "snapshots", snapshot)
	info, err := os.Stat(weightDir)
	if err != nil {
		return "", fmt.Errorf("snapshot %s of model %s not found: %w", snapshot, opts.Name, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("snapshot path %s is not a directory", weightDir)
	}
	return weightDir, nil
}

// ListAvailable returns the hub references of all models cached under
// modelDir, sorted.
func ListAvailable(modelDir string) ([]string, error) {
	entries, err := os.ReadDir(modelDir)
	if err != nil {
		return nil, fmt.Errorf("list models in %s: %w", modelDir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if name, ok := refFromCacheDir(e.Name()); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func cacheDirName(ref string) string {
	return "models--" + strings.ReplaceAll(ref, "/", "--")
}

func refFromCacheDir(dir string) (string, bool) {
	rest, ok := strings.CutPrefix(dir, "models--")
	if !ok {
		return "", false
	}
	return strings.ReplaceAll(rest, "--", "/"), true
}
