package models

import (
	"strings"
	"time"

	"github.com/meysamhadeli/dafc/token_management"
)

// FileRecord holds one file admitted into the project context.
type FileRecord struct {
	RelativePath    string
	Content         string
	LineCount       int
	SizeBytes       int64
	EstimatedTokens int
}

// NewFileRecord derives line count, size and token estimate from content.
func NewFileRecord(relativePath string, content string) FileRecord {
	return FileRecord{
		RelativePath:    relativePath,
		Content:         content,
		LineCount:       strings.Count(content, "\n") + 1,
		SizeBytes:       int64(len(content)),
		EstimatedTokens: token_management.EstimateTokens(content),
	}
}

// RulesDocument is the optional free-text instructions file at the project root.
type RulesDocument struct {
	FileName string
	Content  string
}

// ProjectContext is the result of one traversal, ready to be serialized.
type ProjectContext struct {
	RootLabel            string
	Files                []FileRecord
	Rules                *RulesDocument
	TotalSizeBytes       int64
	TotalEstimatedTokens int
	GeneratedAt          time.Time
}

// RulesContent returns the rules text, or "" when there is no rules document.
func (pc *ProjectContext) RulesContent() string {
	if pc == nil || pc.Rules == nil {
		return ""
	}
	return pc.Rules.Content
}
