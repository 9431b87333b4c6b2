package sources

import (
	"strings"

	"github.com/problemradar/problem-radar/internal/models"
	"golang.org/x/net/html"
)

// matchKeywords returns the keywords found in content, ignoring case
func matchKeywords(content string, keywords []string) []string {
	content = strings.ToLower(content)

	var matched []string
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(content, strings.ToLower(keyword)) {
			matched = append(matched, keyword)
		}
	}
	return matched
}

// Tags that start a new line in the plain text
var blockTags = map[string]bool{
	"p": true, "br": true, "div": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"pre": true, "blockquote": true,
}

// Typographic characters folded to ASCII so pain phrases like "can't find"
// still match.
var punctuation = strings.NewReplacer(
	"\u00a0", " ",
	"\u2018", "'", "\u2019", "'",
	"\u201c", `"`, "\u201d", `"`,
)

// stripHTMLTags turns the HTML bodies returned by the APIs and feeds into
// plain text. Script and style contents are dropped.
func stripHTMLTags(content string) string {
	z := html.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	hidden := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return normalizeText(b.String())
		case html.TextToken:
			if hidden == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "script" || tag == "style":
				if tt == html.StartTagToken {
					hidden++
				} else if tt == html.EndTagToken && hidden > 0 {
					hidden--
				}
			case hidden > 0:
			case tag == "code":
				b.WriteByte('`')
			case blockTags[tag]:
				b.WriteByte('\n')
			}
		}
	}
}

// normalizeText collapses runs of blanks within a line and drops empty lines
func normalizeText(text string) string {
	text = punctuation.Replace(text)

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// deduplicatePosts keeps the first post seen for each id, merging the
// matched keywords of later duplicates into it
func deduplicatePosts(posts []models.Post) []models.Post {
	index := make(map[string]int)
	var unique []models.Post

	for _, post := range posts {
		i, seen := index[post.ID]
		if !seen {
			index[post.ID] = len(unique)
			post.Keywords = append([]string(nil), post.Keywords...)
			unique = append(unique, post)
			continue
		}
		for _, keyword := range post.Keywords {
			if !containsString(unique[i].Keywords, keyword) {
				unique[i].Keywords = append(unique[i].Keywords, keyword)
			}
		}
	}

	return unique
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
