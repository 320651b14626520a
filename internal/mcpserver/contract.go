package mcpserver

// MarkerFormatContract describes the comment-marker syntax that LLM
// consumers should emit when asking for media to be inserted into notes.
const MarkerFormatContract = `# Othala Marker Format

Othala scans Markdown notes for HTML comment markers and replaces each
one with a downloaded (or generated) image embed.

## Syntax

` + "```" + `markdown
<!-- TYPE: query -->
<!-- TYPE: query | alt text -->
` + "```" + `

- TYPE is one of: IMAGE, BOOK, BOOKISBN, MOVIE, TV, AIIMAGE (uppercase).
- query is what to look up (or, for AIIMAGE, the generation prompt).
- Everything after the first ` + "`" + `|` + "`" + ` is optional alt text for the embed.
- Lowercase keywords are ignored; they are treated as ordinary comments.

## Types

| Type     | Source                  | Query                  |
|----------|-------------------------|------------------------|
| IMAGE    | Wikimedia Commons       | free-text image search |
| BOOK     | Open Library            | book title             |
| BOOKISBN | Open Library covers     | ISBN-10 or ISBN-13     |
| MOVIE    | TMDb                    | movie title            |
| TV       | TMDb                    | TV show title          |
| AIIMAGE  | OpenAI image generation | image prompt           |

## Replacement

A marker in the note body becomes a Markdown image:

` + "```" + `markdown
<!-- IMAGE: red fox -->
![red fox](attachments/red-fox.png)
` + "```" + `

A marker wrapped in quotes (inside a frontmatter value) becomes a quoted
wikilink instead:

` + "```" + `yaml
Image: "<!-- BOOKISBN: 9780547928227 -->"
Image: "[[attachments/9780547928227.jpg]]"
` + "```" + `

## Rules

1. Downloaded files land in the vault's attachments directory with a
   slugified name derived from the query.
2. Every rewrite saves a timestamped ` + "`" + `.bak` + "`" + ` copy of the original note
   before the note is touched.
3. Failed lookups leave the marker in place so a later run can retry.
4. Re-running over an already-processed note is a no-op: embeds contain
   no markers.
`
