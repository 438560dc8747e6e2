package assets

import (
	"regexp"
	"strings"

	"github.com/bisicus/segreteriacanti-api/internal/storage"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	separators = strings.NewReplacer("/", "_", `\`, "_")
)

// sanitizeTitle turns a song title into a file name stem: runs of whitespace
// become one underscore and the result is lower case.
func sanitizeTitle(title string) string {
	return strings.ToLower(separators.Replace(whitespace.ReplaceAllString(strings.TrimSpace(title), "_")))
}

// songRef names the file of one kind attached to a song title.
func songRef(title string, kind SongFileKind, mimeType string) string {
	return storage.WithExtension(sanitizeTitle(title)+"--"+string(kind), mimeType)
}

// translationRef names the text of a song in language.
func translationRef(title, language, mimeType string) string {
	return storage.WithExtension(sanitizeTitle(title)+"--"+language, mimeType)
}

// stripExtension drops the last extension of a file name.
func stripExtension(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}
