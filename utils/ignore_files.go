package utils

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DefaultIgnoredDirs are pruned wherever they appear in the tree.
var DefaultIgnoredDirs = []string{
	".git",
	".svn",
	".hg",
	".idea",
	".vscode",
	".cache",
	".next",
	"node_modules",
	"dist",
	"build",
	"out",
	"bin",
	"obj",
	"coverage",
}

// DefaultIgnoredFiles covers OS artifacts, lock files, logs and the tool's own files.
var DefaultIgnoredFiles = []string{
	".DS_Store",
	"Thumbs.db",
	".env",
	"*.log",
	"*.lock",
	"package-lock.json",
	"pnpm-lock.yaml",
	"go.sum",
	"*.exe",
	"*.dll",
	"*.bak",
	"*.bkp",
	"dafc-config.yml",
	"dafc-config.yaml",
	"dafc-config.json",
}

// IgnoreOptions names the ignore sources read from the project root.
type IgnoreOptions struct {
	GitIgnoreFileName string
	IgnoreFileName    string
	// ExtraIgnoredFiles are appended to the built-in file layer (response and context output files).
	ExtraIgnoredFiles []string
	Logger            *zap.Logger
}

type ignoreLayer struct {
	name    string
	matcher gitignore.Matcher
}

// IgnoreFilter excludes a path when any of its layers matches it.
// Negation only works inside a layer; a later layer never re-includes a path.
type IgnoreFilter struct {
	layers []ignoreLayer
	logger *zap.Logger
}

// NewIgnoreFilter builds the layered matcher for rootDir: built-in directories, built-in files,
// the .gitignore file and the tool ignore file, in that order. Missing ignore files are empty layers.
func NewIgnoreFilter(rootDir string, options IgnoreOptions) (*IgnoreFilter, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dirRules := lo.Map(DefaultIgnoredDirs, func(dir string, _ int) string {
		return dir + "/"
	})
	fileRules := append(append([]string{}, DefaultIgnoredFiles...), lo.Compact(options.ExtraIgnoredFiles)...)

	filter := &IgnoreFilter{logger: logger}
	filter.addLayer("default directories", dirRules)
	filter.addLayer("default files", fileRules)

	for _, fileName := range []string{options.GitIgnoreFileName, options.IgnoreFileName} {
		if fileName == "" {
			continue
		}
		patterns, err := readIgnoreFile(filepath.Join(rootDir, fileName))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fileName, err)
		}
		if len(patterns) > 0 {
			logger.Debug("loaded ignore rules", zap.String("file", fileName), zap.Int("rules", len(patterns)))
		}
		filter.addLayer(fileName, patterns)
	}

	return filter, nil
}

func (f *IgnoreFilter) addLayer(name string, patterns []string) {
	parsed := lo.Map(patterns, func(pattern string, _ int) gitignore.Pattern {
		return gitignore.ParsePattern(pattern, nil)
	})
	f.layers = append(f.layers, ignoreLayer{
		name:    name,
		matcher: gitignore.NewMatcher(parsed),
	})
}

// IsAllowed reports whether relativePath survives every layer. Directory paths should carry a
// trailing "/" so directory-only rules apply to them. A path that cannot be evaluated is excluded.
func (f *IgnoreFilter) IsAllowed(relativePath string) (allowed bool) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Warn("ignore rule evaluation failed, excluding path",
				zap.String("path", relativePath), zap.Any("panic", r))
			allowed = false
		}
	}()

	normalized, err := normalizeRelativePath(relativePath)
	if err != nil {
		f.logger.Warn("cannot evaluate ignore rules, excluding path",
			zap.String("path", relativePath), zap.Error(err))
		return false
	}

	isDir := strings.HasSuffix(normalized, "/")
	segments := strings.Split(strings.TrimSuffix(normalized, "/"), "/")

	for _, layer := range f.layers {
		if layer.matcher.Match(segments, isDir) {
			return false
		}
	}
	return true
}

func normalizeRelativePath(relativePath string) (string, error) {
	slashed := strings.TrimPrefix(filepath.ToSlash(relativePath), "/")
	isDir := strings.HasSuffix(slashed, "/")

	cleaned := path.Clean(slashed)
	if slashed == "" || cleaned == "." {
		return "", errors.New("empty relative path")
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("path %q is outside the root", relativePath)
	}
	if isDir {
		cleaned += "/"
	}
	return cleaned, nil
}

// readIgnoreFile returns the non-blank, non-comment lines of an ignore file.
// A missing file yields no patterns.
func readIgnoreFile(ignorePath string) ([]string, error) {
	content, err := os.ReadFile(ignorePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			patterns = append(patterns, trimmed)
		}
	}
	return patterns, nil
}
