// Package parser splits Markdown notes into YAML frontmatter and body, and
// edits frontmatter fields without disturbing key order.
package parser

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// Note is a parsed Markdown file. The frontmatter is held as a yaml.Node
// mapping so edits round-trip with the original key order intact.
type Note struct {
	fm   *yaml.Node // mapping node; nil when the note has no frontmatter
	Body string
}

// Parse splits raw note bytes into frontmatter and body. Notes without a
// frontmatter block, or with YAML that does not parse, come back with a
// nil mapping and the full content as body.
func Parse(data []byte) *Note {
	text := string(data)
	if !strings.HasPrefix(text, delim+"\n") {
		return &Note{Body: text}
	}

	// The closing fence must be a line that is exactly "---" once trimmed;
	// lines like "----" or "--- x" are body content, not delimiters.
	rest := text[len(delim)+1:]
	block, body, found := "", "", false
	for off := 0; off <= len(rest); {
		lineEnd := strings.IndexByte(rest[off:], '\n')
		line := ""
		next := len(rest) + 1
		if lineEnd >= 0 {
			line = rest[off : off+lineEnd]
			next = off + lineEnd + 1
		} else {
			line = rest[off:]
		}
		if strings.TrimSpace(line) == delim {
			block = rest[:off]
			body = rest[min(next, len(rest)):]
			found = true
			break
		}
		off = next
	}
	if !found {
		// No closing delimiter: treat everything as body.
		return &Note{Body: text}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return &Note{Body: text}
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return &Note{Body: text}
	}
	return &Note{fm: doc.Content[0], Body: body}
}

// HasFrontmatter reports whether the note carries a frontmatter mapping.
func (n *Note) HasFrontmatter() bool { return n.fm != nil }

// Render reassembles the note. Frontmatter is re-encoded from the mapping
// node, preserving key order; the body is appended unchanged.
func (n *Note) Render() ([]byte, error) {
	if n.fm == nil {
		return []byte(n.Body), nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n.fm); err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}
	return []byte(delim + "\n" + buf.String() + delim + "\n" + n.Body), nil
}

// findKey returns the index of the key node matching key
// (case-insensitive), or -1.
func (n *Note) findKey(key string) int {
	if n.fm == nil {
		return -1
	}
	for i := 0; i+1 < len(n.fm.Content); i += 2 {
		if strings.EqualFold(n.fm.Content[i].Value, key) {
			return i
		}
	}
	return -1
}

// Get returns the scalar value of key (case-insensitive key match).
func (n *Note) Get(key string) (string, bool) {
	i := n.findKey(key)
	if i < 0 {
		return "", false
	}
	v := n.fm.Content[i+1]
	if v.Kind != yaml.ScalarNode || v.Tag == "!!null" {
		return "", false
	}
	return v.Value, true
}

// ensure creates an empty frontmatter mapping if the note has none.
func (n *Note) ensure() {
	if n.fm == nil {
		n.fm = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
}

// SetIfEmpty fills key with a double-quoted string value only when the key
// is absent or its current value is empty. Returns true when it wrote.
func (n *Note) SetIfEmpty(key, value string) bool {
	n.ensure()
	if i := n.findKey(key); i >= 0 {
		v := n.fm.Content[i+1]
		if v.Kind != yaml.ScalarNode || (v.Value != "" && v.Tag != "!!null") {
			return false
		}
		*v = *scalarNode(value)
		return true
	}
	n.fm.Content = append(n.fm.Content, keyNode(key), scalarNode(value))
	return true
}

// SetListIfEmpty fills key with a sequence of strings only when the key is
// absent or holds an empty value. Returns true when it wrote.
func (n *Note) SetListIfEmpty(key string, values []string) bool {
	n.ensure()
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, v := range values {
		seq.Content = append(seq.Content, scalarNode(v))
	}
	if i := n.findKey(key); i >= 0 {
		v := n.fm.Content[i+1]
		empty := (v.Kind == yaml.ScalarNode && (v.Value == "" || v.Tag == "!!null")) ||
			(v.Kind == yaml.SequenceNode && len(v.Content) == 0)
		if !empty {
			return false
		}
		*v = *seq
		return true
	}
	n.fm.Content = append(n.fm.Content, keyNode(key), seq)
	return true
}

func keyNode(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

func scalarNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: value}
}

var tagSplitRe = regexp.MustCompile(`[,\s]+`)

// NormalizeTag trims, strips a leading #, and lowercases a tag.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
}

// tagsValue returns the value node of the tags (or tag) key.
func (n *Note) tagsValue() *yaml.Node {
	for _, key := range []string{"tags", "tag"} {
		if i := n.findKey(key); i >= 0 {
			return n.fm.Content[i+1]
		}
	}
	return nil
}

// Tags returns the normalized frontmatter tags, whether stored as a YAML
// list or a comma/space separated string.
func (n *Note) Tags() []string {
	v := n.tagsValue()
	if v == nil {
		return nil
	}
	var out []string
	switch v.Kind {
	case yaml.SequenceNode:
		for _, item := range v.Content {
			if t := NormalizeTag(item.Value); t != "" {
				out = append(out, t)
			}
		}
	case yaml.ScalarNode:
		for _, part := range tagSplitRe.Split(v.Value, -1) {
			if t := NormalizeTag(part); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

// RemoveTag deletes a tag from the frontmatter tag set, keeping the
// original representation (list stays a list, string stays a string).
func (n *Note) RemoveTag(tag string) {
	v := n.tagsValue()
	if v == nil {
		return
	}
	tag = NormalizeTag(tag)
	switch v.Kind {
	case yaml.SequenceNode:
		kept := v.Content[:0]
		for _, item := range v.Content {
			if NormalizeTag(item.Value) != tag {
				kept = append(kept, item)
			}
		}
		v.Content = kept
	case yaml.ScalarNode:
		var kept []string
		for _, part := range tagSplitRe.Split(v.Value, -1) {
			if part != "" && NormalizeTag(part) != tag {
				kept = append(kept, part)
			}
		}
		v.Value = strings.Join(kept, ", ")
	}
}

// Title returns the frontmatter title, else the first H1 heading, else the
// filename stem.
func (n *Note) Title(notePath string) string {
	if t, ok := n.Get("title"); ok && t != "" {
		return t
	}
	for _, line := range strings.Split(n.Body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return strings.TrimSuffix(path.Base(notePath), path.Ext(notePath))
}

// HasInlineTag reports whether #tag appears in the body (at the start of a
// line or after whitespace, case-insensitive).
func HasInlineTag(body, tag string) bool {
	return inlineTagRe(tag).MatchString(body)
}

// RemoveInlineTag strips every #tag occurrence from the body, keeping the
// whitespace that preceded it.
func RemoveInlineTag(body, tag string) string {
	return inlineTagRe(tag).ReplaceAllString(body, "$1")
}

func inlineTagRe(tag string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(^|\s)#` + regexp.QuoteMeta(tag) + `\b`)
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// CollapseBlankLines squeezes runs of three or more newlines (as left
// behind by inline-tag removal) down to one blank line.
func CollapseBlankLines(body string) string {
	return blankRunRe.ReplaceAllString(body, "\n\n")
}
