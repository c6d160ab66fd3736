package mcpserver

// QuerySyntaxGuide describes the boolean query grammar accepted by the
// search_notes tool, for LLM consumers.
const QuerySyntaxGuide = `# Muninn Search Syntax

Queries match against the full note content, case-insensitively.

## Terms

A bare word matches any note containing it as a substring:

` + "```" + `
meeting
` + "```" + `

Several words in a row must ALL match (implicit AND):

` + "```" + `
project meeting        # same as: project AND meeting
` + "```" + `

## Phrases

Double quotes match an exact contiguous phrase (still case-insensitive):

` + "```" + `
"hello world"          # matches "Hello World, greetings"
                       # does NOT match "hello  world" (extra space)
` + "```" + `

Quoting also turns an operator word into a literal term: ` + "`" + `"and"` + "`" + ` matches
the letters a-n-d anywhere, including inside "sand".

## Operators

Uppercase or lowercase operator words combine terms. Precedence from
tightest to loosest: NOT, then AND, then OR.

` + "```" + `
project AND meeting    # both must appear
project OR meeting     # at least one must appear
project NOT meeting    # "project" present, "meeting" absent
a OR b AND c           # parsed as: a OR (b AND c)
` + "```" + `

## Results

Matching notes are ranked by the number of occurrences of the positive
terms and phrases, most occurrences first, ties broken by most recently
modified. An empty query matches nothing.

## Filters

The search_notes tool accepts extra filters that combine with the query:

- ` + "`" + `tags` + "`" + `: comma-separated; a note must carry every listed tag.
  The keyword ` + "`" + `untagged` + "`" + ` selects notes with no tags at all.
- ` + "`" + `from_date` + "`" + ` / ` + "`" + `to_date` + "`" + `: inclusive modification-date bounds,
  as YYYY-MM-DD or RFC 3339 timestamps.
`
