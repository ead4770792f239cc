// Package artifactio reads and writes the markdown-with-YAML-front-matter
// files persisted at work/projects/<id>/artifacts/<artifact_id>.md (spec
// §2's Artifact entity). Shared by internal/index (rebuild scan),
// internal/review (reading the artifact under resolve), and
// internal/contextpack (writing new artifacts), so the front-matter
// format has exactly one implementation.
package artifactio

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/CLIAIMONITOR/internal/corerr"
	"github.com/CLIAIMONITOR/internal/fsys"
	"github.com/CLIAIMONITOR/internal/types"
)

var frontMatterDelim = []byte("---\n")

// ReadFrontMatter parses an artifact file's YAML front matter and body.
// art.Body carries the markdown following the closing "---" line.
func ReadFrontMatter(data []byte) (types.Artifact, error) {
	if !bytes.HasPrefix(data, frontMatterDelim) {
		return types.Artifact{}, fmt.Errorf("artifactio: missing YAML front matter")
	}
	rest := data[len(frontMatterDelim):]
	end := bytes.Index(rest, frontMatterDelim)
	if end < 0 {
		return types.Artifact{}, fmt.Errorf("artifactio: unterminated YAML front matter")
	}

	var art types.Artifact
	if err := types.StrictUnmarshalYAML(rest[:end], &art); err != nil {
		return types.Artifact{}, fmt.Errorf("artifactio: parse front matter: %w", err)
	}
	art.Body = strings.TrimPrefix(string(rest[end+len(frontMatterDelim):]), "\n")
	return art, nil
}

// ReadFile reads and parses the artifact file at path.
func ReadFile(path string) (types.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Artifact{}, err
	}
	return ReadFrontMatter(data)
}

// Render serializes art's front matter and body back into file bytes.
func Render(art types.Artifact) ([]byte, error) {
	front, err := yaml.Marshal(art)
	if err != nil {
		return nil, fmt.Errorf("artifactio: marshal front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.Write(frontMatterDelim)
	buf.Write(front)
	buf.Write(frontMatterDelim)
	buf.WriteString(art.Body)
	return buf.Bytes(), nil
}

// Validate checks art's own field-level Validate() and that its body
// contains every heading RequiredHeadings(art.Type) lists.
func Validate(art types.Artifact) error {
	if err := art.Validate(); err != nil {
		return err
	}
	var missing []string
	for _, h := range types.RequiredHeadings(art.Type) {
		if !strings.Contains(art.Body, h) {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return &corerr.ValidationError{Issues: []corerr.ValidationIssue{{
			Path:    "body",
			Message: fmt.Sprintf("missing required headings: %v", missing),
		}}}
	}
	return nil
}

// WriteFile validates art and atomically writes it to path.
func WriteFile(path string, art types.Artifact) error {
	if err := Validate(art); err != nil {
		return err
	}
	data, err := Render(art)
	if err != nil {
		return err
	}
	return fsys.WriteFileAtomic(path, data, 0o644)
}
