package export

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vonshlovens/flownotes/internal/note"
)

var (
	// frontmatterRegex matches YAML frontmatter between --- delimiters
	frontmatterRegex = regexp.MustCompile(`(?s)^---\n(.+?)\n---\n?`)

	// Date formats accepted in imported frontmatter
	dateFormats = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
		"January 2, 2006",
		"Jan 2, 2006",
	}
)

// Frontmatter is the subset of note metadata carried in a markdown header
type Frontmatter struct {
	Title    *string
	Tags     []string
	Created  *time.Time
	Modified *time.Time
}

// flexibleTime handles various date formats
type flexibleTime struct {
	time.Time
}

func (ft *flexibleTime) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	str = strings.TrimSpace(str)
	if str == "" {
		return nil
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, str); err == nil {
			ft.Time = t
			return nil
		}
	}

	return nil // unparseable dates are left empty
}

type rawFrontmatter struct {
	Title    *string      `yaml:"title"`
	Tags     interface{}  `yaml:"tags"` // string or list
	Created  flexibleTime `yaml:"created"`
	Modified flexibleTime `yaml:"modified"`
}

// writtenFrontmatter is the header emitted on export
type writtenFrontmatter struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Tags     []string `yaml:"tags,omitempty"`
	Created  string   `yaml:"created"`
	Modified string   `yaml:"modified"`
}

// ParseFrontmatter splits content into its frontmatter and body. Content
// without frontmatter, or with frontmatter that is not valid YAML, is
// returned whole with an empty Frontmatter.
func ParseFrontmatter(content string) (*Frontmatter, string) {
	fm := &Frontmatter{}

	match := frontmatterRegex.FindStringSubmatch(content)
	if match == nil {
		return fm, content
	}

	var raw rawFrontmatter
	if err := yaml.Unmarshal([]byte(match[1]), &raw); err != nil {
		return fm, content
	}

	fm.Title = raw.Title
	fm.Tags = normalizeStringArray(raw.Tags)
	if !raw.Created.IsZero() {
		t := raw.Created.Time
		fm.Created = &t
	}
	if !raw.Modified.IsZero() {
		t := raw.Modified.Time
		fm.Modified = &t
	}

	return fm, content[len(match[0]):]
}

// renderFrontmatter encodes the note metadata as a --- delimited YAML header
func renderFrontmatter(n *note.Note) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	err := enc.Encode(writtenFrontmatter{
		ID:       n.ID,
		Title:    n.Title,
		Tags:     n.Tags,
		Created:  n.CreatedAt.UTC().Format(time.RFC3339Nano),
		Modified: n.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}

	buf.WriteString("---\n")
	return buf.String(), nil
}

// normalizeStringArray converts string or []string or []interface{} to []string
func normalizeStringArray(v interface{}) []string {
	if v == nil {
		return nil
	}

	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []string:
		return val
	case []interface{}:
		result := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}
