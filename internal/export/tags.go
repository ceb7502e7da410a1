package export

import (
	"regexp"
	"strings"
)

var (
	// inlineTagRegex matches #tag-name (but not #123 or &#123;)
	inlineTagRegex = regexp.MustCompile(`(?:^|[^&\w])#([a-zA-Z][a-zA-Z0-9_/-]*)`)

	codeBlockRegex  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRegex = regexp.MustCompile("`[^`]+`")
)

// extractInlineTags finds all #tags in the content, excluding code
func extractInlineTags(content string) []string {
	cleanContent := codeBlockRegex.ReplaceAllString(content, "")
	cleanContent = inlineCodeRegex.ReplaceAllString(cleanContent, "")

	matches := inlineTagRegex.FindAllStringSubmatch(cleanContent, -1)
	seen := make(map[string]bool)
	var tags []string

	for _, match := range matches {
		tag := strings.ToLower(strings.TrimSpace(match[1]))
		if tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	return tags
}

// MergeTags combines frontmatter tags and inline tags, lower-cased and de-duplicated
func MergeTags(frontmatterTags, inlineTags []string) []string {
	seen := make(map[string]bool)
	var merged []string

	for _, list := range [][]string{frontmatterTags, inlineTags} {
		for _, tag := range list {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag != "" && !seen[tag] {
				seen[tag] = true
				merged = append(merged, tag)
			}
		}
	}

	return merged
}
