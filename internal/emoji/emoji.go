// Package emoji extracts emoji tokens from message text.
package emoji

import "regexp"

// pattern matches Discord custom emoji tags (static and animated) and the
// common unicode emoji blocks. A single alternation keeps matches in document
// order regardless of class.
var pattern = regexp.MustCompile(`<a?:\w+:\d+>|` +
	`[\x{1F600}-\x{1F64F}` + // emoticons
	`\x{1F300}-\x{1F5FF}` + // symbols & pictographs
	`\x{1F680}-\x{1F6FF}` + // transport & map
	`\x{1F1E0}-\x{1F1FF}` + // regional indicators (flags)
	`\x{1F900}-\x{1F9FF}` + // supplemental symbols
	`\x{1FA00}-\x{1FA6F}` + // chess symbols
	`\x{1FA70}-\x{1FAFF}` + // symbols extended
	`\x{2702}-\x{27B0}` + // dingbats
	`\x{2600}-\x{26FF}]`) // misc symbols

// Extract returns every emoji token in text, in order of appearance and
// keeping duplicates at their position. Custom tags are returned verbatim
// ("<:name:id>"); unicode emoji are returned one rune per token.
func Extract(text string) []string {
	matches := pattern.FindAllString(text, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}
