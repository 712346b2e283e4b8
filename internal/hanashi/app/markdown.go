package app

import (
	"html"
	"strings"
)

// markdownToHTML renders the small Markdown subset used by command replies
// (fenced code, inline code, **bold**, newlines) as Matrix HTML. All other
// text is HTML-escaped.
func markdownToHTML(md string) string {
	var out strings.Builder
	inCode := false
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "```") {
			if inCode {
				out.WriteString("</code></pre>")
			} else {
				out.WriteString("<pre><code>")
			}
			inCode = !inCode
			continue
		}
		if inCode {
			out.WriteString(html.EscapeString(line))
			out.WriteString("\n")
			continue
		}
		escaped := html.EscapeString(line)
		escaped = replaceDelimited(escaped, "`", "<code>", "</code>")
		escaped = replaceDelimited(escaped, "**", "<strong>", "</strong>")
		out.WriteString(escaped)
		out.WriteString("<br/>")
	}
	if inCode {
		out.WriteString("</code></pre>")
	}
	return strings.TrimSuffix(out.String(), "<br/>")
}

// replaceDelimited wraps complete delim…delim pairs in open/close. An
// unmatched opener is left as-is.
func replaceDelimited(s, delim, open, close string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, delim)
		if start < 0 {
			break
		}
		end := strings.Index(s[start+len(delim):], delim)
		if end < 0 {
			break
		}
		end += start + len(delim)
		b.WriteString(s[:start])
		b.WriteString(open)
		b.WriteString(s[start+len(delim) : end])
		b.WriteString(close)
		s = s[end+len(delim):]
	}
	b.WriteString(s)
	return b.String()
}
