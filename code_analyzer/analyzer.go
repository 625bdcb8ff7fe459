package code_analyzer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/meysamhadeli/dafc/code_analyzer/contracts"
	"github.com/meysamhadeli/dafc/code_analyzer/models"
	"github.com/meysamhadeli/dafc/config"
	"github.com/meysamhadeli/dafc/token_management"
	token_contracts "github.com/meysamhadeli/dafc/token_management/contracts"
	"github.com/meysamhadeli/dafc/utils"
	"go.uber.org/zap"
)

// CodeAnalyzer walks a project tree and assembles the context sent to the model.
type CodeAnalyzer struct {
	Cwd      string
	config   *config.Config
	logger   *zap.Logger
	readFile func(name string) ([]byte, error)
	now      func() time.Time
}

// NewCodeAnalyzer initializes a new CodeAnalyzer.
func NewCodeAnalyzer(cwd string, cfg *config.Config, logger *zap.Logger) contracts.IContextAssembler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CodeAnalyzer{
		Cwd:      cwd,
		config:   cfg,
		logger:   logger,
		readFile: os.ReadFile,
		now:      time.Now,
	}
}

// GatherContext collects every eligible file under rootDir, sorted by relative path.
// The whole operation fails with a *BudgetExceededError when the token ceiling would be crossed;
// no partial context is returned.
func (analyzer *CodeAnalyzer) GatherContext(rootDir string) (*models.ProjectContext, error) {
	if rootDir == "" {
		rootDir = analyzer.Cwd
	}

	rootLabel, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory %s: %w", rootDir, err)
	}

	ignoreFilter, err := utils.NewIgnoreFilter(rootDir, utils.IgnoreOptions{
		GitIgnoreFileName: analyzer.config.GitIgnoreFileName,
		IgnoreFileName:    analyzer.config.IgnoreFileName,
		ExtraIgnoredFiles: []string{analyzer.config.ResponseFileName, analyzer.config.ContextFileName},
		Logger:            analyzer.logger,
	})
	if err != nil {
		return nil, err
	}

	rules, err := analyzer.loadRules(rootDir)
	if err != nil {
		return nil, err
	}

	generatedAt := analyzer.now()
	budget := token_management.NewTokenBudget(analyzer.config.TokenCeiling)

	analyzer.logger.Info("starting context scan from root", zap.String("root", rootLabel))
	analyzer.logger.Info("max context limit", zap.Int("tokens", budget.Ceiling()))

	boilerplateTokens := token_management.EstimateTokens(contextBoilerplate(rootLabel, analyzer.config.RulesFileName, generatedAt))
	if !budget.TryCommit(boilerplateTokens, 0) {
		return nil, &BudgetExceededError{Limit: budget.Ceiling(), Incoming: boilerplateTokens, Source: "context boilerplate"}
	}

	if rules != nil {
		rulesTokens := token_management.EstimateTokens(rules.Content)
		if !budget.TryCommit(rulesTokens, 0) {
			return nil, &BudgetExceededError{
				Limit:    budget.Ceiling(),
				Current:  budget.TotalTokens(),
				Incoming: rulesTokens,
				Source:   fmt.Sprintf("rules file (%s)", rules.FileName),
			}
		}
		analyzer.logger.Info("rules file included", zap.String("file", rules.FileName), zap.Int("tokens", rulesTokens))
	}

	files, err := analyzer.walk(rootDir, ignoreFilter, budget)
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].RelativePath < files[j].RelativePath
	})

	analyzer.logger.Info("context gathered",
		zap.Int("files", len(files)),
		zap.String("size", utils.FormatBytes(budget.TotalSize())),
		zap.Int("tokens", budget.TotalTokens()),
		zap.Int("remaining", budget.Remaining()))

	return &models.ProjectContext{
		RootLabel:            rootLabel,
		Files:                files,
		Rules:                rules,
		TotalSizeBytes:       budget.TotalSize(),
		TotalEstimatedTokens: budget.TotalTokens(),
		GeneratedAt:          generatedAt,
	}, nil
}

// walk visits the tree depth-first, one file at a time, committing each admitted file to budget.
func (analyzer *CodeAnalyzer) walk(rootDir string, ignoreFilter *utils.IgnoreFilter, budget token_contracts.ITokenBudget) ([]models.FileRecord, error) {
	var files []models.FileRecord

	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == rootDir {
				return err
			}
			analyzer.logger.Warn("cannot access path, skipping", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relativePath, err := filepath.Rel(rootDir, path)
		if err != nil {
			analyzer.logger.Warn("cannot compute relative path, skipping", zap.String("path", path), zap.Error(err))
			return nil
		}
		relativePath = filepath.ToSlash(relativePath)
		if relativePath == "." {
			return nil
		}

		if d.IsDir() {
			if !ignoreFilter.IsAllowed(relativePath + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !ignoreFilter.IsAllowed(relativePath) {
			return nil
		}

		// Symlinks and other special files are never followed.
		if !d.Type().IsRegular() {
			return nil
		}

		if !utils.IsEligible(d.Name()) {
			return nil
		}

		file, ok := analyzer.readRecord(path, relativePath, d)
		if !ok {
			return nil
		}

		fileTokens := file.EstimatedTokens + token_management.EstimateTokens(fileBoilerplate(file))
		if !budget.TryCommit(fileTokens, file.SizeBytes) {
			return &BudgetExceededError{
				Limit:    budget.Ceiling(),
				Current:  budget.TotalTokens(),
				Incoming: fileTokens,
				Path:     relativePath,
			}
		}

		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// readRecord applies the size checks and reads one file. It returns false when the file is skipped.
func (analyzer *CodeAnalyzer) readRecord(path string, relativePath string, d fs.DirEntry) (models.FileRecord, bool) {
	info, err := d.Info()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			analyzer.logger.Warn("failed to stat file, skipping", zap.String("path", relativePath), zap.Error(err))
		}
		return models.FileRecord{}, false
	}

	if info.Size() > analyzer.config.PerFileByteCeiling {
		analyzer.logger.Warn("file size exceeds limit, skipping",
			zap.String("path", relativePath),
			zap.String("size", utils.FormatBytes(info.Size())),
			zap.String("limit", utils.FormatBytes(analyzer.config.PerFileByteCeiling)))
		return models.FileRecord{}, false
	}
	if info.Size() == 0 {
		return models.FileRecord{}, false
	}

	content, err := analyzer.readFile(path)
	if err != nil {
		// A file deleted between listing and reading is skipped like any other exclusion.
		if !errors.Is(err, fs.ErrNotExist) {
			analyzer.logger.Warn("failed to read file, skipping", zap.String("path", relativePath), zap.Error(err))
		}
		return models.FileRecord{}, false
	}
	if len(content) == 0 {
		return models.FileRecord{}, false
	}

	return models.NewFileRecord(relativePath, string(content)), true
}

// loadRules reads the rules file at the project root. A missing or empty file means no rules.
func (analyzer *CodeAnalyzer) loadRules(rootDir string) (*models.RulesDocument, error) {
	fileName := analyzer.config.RulesFileName
	if fileName == "" {
		return nil, nil
	}

	content, err := analyzer.readFile(filepath.Join(rootDir, fileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read rules file %s: %w", fileName, err)
	}
	if len(content) == 0 {
		return nil, nil
	}

	return &models.RulesDocument{FileName: fileName, Content: string(content)}, nil
}
