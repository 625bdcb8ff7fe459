package code_analyzer

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/meysamhadeli/dafc/code_analyzer/models"
	"github.com/meysamhadeli/dafc/utils"
	"github.com/zeebo/xxh3"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// SerializeContext renders the project context document. It is a pure function of its input:
// files are written in the order given and nothing is filtered.
func SerializeContext(projectContext *models.ProjectContext) string {
	var builder strings.Builder

	builder.WriteString("[START PROJECT CONTEXT]\n")
	builder.WriteString(fmt.Sprintf("Root Directory: %s\n", projectContext.RootLabel))
	builder.WriteString(fmt.Sprintf("Total Files Included: %d\n", len(projectContext.Files)))
	builder.WriteString(fmt.Sprintf("Total Size Included: %s\n", utils.FormatBytes(projectContext.TotalSizeBytes)))
	builder.WriteString(fmt.Sprintf("Total Estimated Tokens: %d\n", projectContext.TotalEstimatedTokens))
	builder.WriteString(fmt.Sprintf("Timestamp: %s\n", projectContext.GeneratedAt.UTC().Format(timestampLayout)))
	builder.WriteString("---\n")

	builder.WriteString("[START FILES]\n")
	for _, file := range projectContext.Files {
		builder.WriteString(renderFileBlock(file))
		builder.WriteString("\n")
	}
	builder.WriteString("[END FILES]\n")

	if projectContext.Rules != nil {
		builder.WriteString("---\n")
		builder.WriteString(renderRulesBlock(projectContext.Rules))
		builder.WriteString("\n")
	}

	builder.WriteString("[END PROJECT CONTEXT]")
	return builder.String()
}

func renderFileBlock(file models.FileRecord) string {
	return fmt.Sprintf("[START FILE]\nFile: %s\nLines: %d\nSize: %s\nContent:\n```%s\n%s\n```\n[END FILE]",
		file.RelativePath, file.LineCount, utils.FormatBytes(file.SizeBytes), languageHint(file.RelativePath), file.Content)
}

func renderRulesBlock(rules *models.RulesDocument) string {
	return fmt.Sprintf("[START RULES]\nFile: %s\nContent:\n```\n%s\n```\n[END RULES]", rules.FileName, rules.Content)
}

// languageHint is the file extension without its dot; extensionless files get an empty hint.
func languageHint(relativePath string) string {
	return strings.TrimPrefix(path.Ext(relativePath), ".")
}

// fileBoilerplate is the text that wraps a file's content in the document.
func fileBoilerplate(file models.FileRecord) string {
	file.Content = ""
	return renderFileBlock(file)
}

// contextBoilerplate is the document skeleton without files: header, markers and an empty rules block.
func contextBoilerplate(rootLabel string, rulesFileName string, generatedAt time.Time) string {
	return SerializeContext(&models.ProjectContext{
		RootLabel:   rootLabel,
		Rules:       &models.RulesDocument{FileName: rulesFileName},
		GeneratedAt: generatedAt,
	})
}

// Fingerprint hashes the serialized context with its timestamp zeroed, so two traversals of the
// same tree produce the same value.
func Fingerprint(projectContext *models.ProjectContext) string {
	stable := *projectContext
	stable.GeneratedAt = time.Time{}
	return fmt.Sprintf("%016x", xxh3.HashString(SerializeContext(&stable)))
}
