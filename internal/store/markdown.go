package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Separator splits a record body from its mirrored tracker comments. Text
// below the separator is never pushed to the remote item.
const Separator = "\n\n===\n***\n===\n\n"

// writeRecord writes a markdown record: YAML frontmatter between --- fences,
// then the free-text body. Parent directories are created as needed.
func writeRecord(path string, frontmatter any, body string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create record dir: %w", err)
	}

	fm, err := yaml.Marshal(frontmatter)
	if err != nil {
		return fmt.Errorf("marshal frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimRight(body, "\n"))
	b.WriteString("\n")

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// readRecord parses a markdown record into frontmatter and body. Records
// without a frontmatter fence yield an empty frontmatter and the full text
// as body.
func readRecord(path string, frontmatter any) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	content := string(data)
	if !strings.HasPrefix(content, "---\n") {
		return strings.TrimSpace(content), nil
	}

	rest := content[4:]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return strings.TrimSpace(content), nil
	}

	if err := yaml.Unmarshal([]byte(rest[:idx]), frontmatter); err != nil {
		return "", fmt.Errorf("parse frontmatter of %s: %w", filepath.Base(path), err)
	}

	body := rest[idx+4:]
	body = strings.TrimPrefix(body, "\n")
	return strings.TrimSpace(body), nil
}

// SyncBody returns the part of a record body that mirrors the remote item:
// everything above the comments separator, trimmed.
func SyncBody(body string) string {
	if i := strings.Index(body, strings.TrimRight(Separator, "\n")); i >= 0 {
		body = body[:i]
	}
	return strings.TrimSpace(body)
}

// Slugify converts a title to a filesystem-safe slug: lowercase, word
// separators collapsed to single underscores, everything else dropped.
func Slugify(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ToLower(text)

	var b strings.Builder
	lastUnderscore := false
	for _, r := range text {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case r == ' ' || r == '-' || r == '_' || r == '\t':
			if !lastUnderscore && b.Len() > 0 {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
