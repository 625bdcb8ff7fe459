package utils

import (
	"regexp"

	"github.com/samber/lo"
)

// includePatterns is the allow-list consulted for every candidate file name.
// Matching is case-sensitive. Exact-name entries cover manifests without an extension.
var includePatterns = lo.Map([]string{
	`\.ts$`, `\.tsx$`, `\.js$`, `\.jsx$`, `\.mjs$`, `\.cjs$`,
	`\.py$`, `\.rb$`, `\.php$`, `\.go$`, `\.rs$`, `\.java$`, `\.kt$`, `\.cs$`, `\.swift$`,
	`\.c$`, `\.h$`, `\.cpp$`, `\.hpp$`, `\.zig$`,
	`\.html$`, `\.css$`, `\.scss$`, `\.less$`, `\.vue$`, `\.svelte$`,
	`\.json$`, `\.yaml$`, `\.yml$`, `\.toml$`, `\.xml$`,
	`\.md$`, `\.txt$`, `\.sql$`, `\.sh$`, `\.bash$`, `\.proto$`,
	`^Dockerfile$`, `^docker-compose\.ya?ml$`, `^Makefile$`, `^Gemfile$`,
	`^package\.json$`, `^composer\.json$`, `^requirements\.txt$`,
	`^go\.mod$`, `^Cargo\.toml$`, `^pom\.xml$`, `\.csproj$`,
	`^\.?env`, `^\.?config`, `^\.[A-Za-z0-9_-]+rc$`,
}, func(pattern string, _ int) *regexp.Regexp {
	return regexp.MustCompile(pattern)
})

// IsEligible reports whether a file name passes the extension allow-list.
// Dotfiles get no special pass: they are only eligible when a pattern matches them positively.
func IsEligible(fileName string) bool {
	if fileName == "" || fileName == "." || fileName == ".." {
		return false
	}
	return lo.ContainsBy(includePatterns, func(pattern *regexp.Regexp) bool {
		return pattern.MatchString(fileName)
	})
}
