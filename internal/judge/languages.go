package judge

// Language ids of the external execution service.
var languageIDs = map[string]int{
	"javascript": 63,
	"python":     71,
	"cpp":        54,
	"c":          50,
	"java":       62,
	"typescript": 74,
}

// Resolve maps a declared submission language to the judge's language id.
// The second return is false for unsupported languages; there is no default.
func Resolve(language string) (int, bool) {
	id, ok := languageIDs[language]
	return id, ok
}
