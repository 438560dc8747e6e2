// Package languages resolves language names and codes to ISO 639-1.
package languages

import "strings"

// aliases maps each ISO 639-1 code to the alternative spellings accepted for it.
var aliases = map[string][]string{
	"de": {"deu", "ger", "german", "deutsch", "tedesco"},
	"en": {"eng", "english", "inglese"},
	"es": {"spa", "spanish", "espanol", "español", "spagnolo"},
	"fr": {"fra", "fre", "french", "francais", "français", "francese"},
	"it": {"ita", "italian", "italiano"},
	"la": {"lat", "latin", "latino"},
	"pl": {"pol", "polish", "polski", "polacco"},
	"pt": {"por", "portuguese", "portugues", "português", "portoghese"},
	"ro": {"ron", "rum", "romanian", "romeno"},
	"ru": {"rus", "russian", "russo"},
	"sw": {"swa", "swahili"},
	"uk": {"ukr", "ukrainian", "ucraino"},
	"nl": {"nld", "dut", "dutch", "olandese"},
	"el": {"ell", "gre", "greek", "greco"},
	"hr": {"hrv", "croatian", "croato"},
	"sl": {"slv", "slovenian", "sloveno"},
	"ca": {"cat", "catalan", "catalano"},
	"hu": {"hun", "hungarian", "ungherese"},
	"cs": {"ces", "cze", "czech", "ceco"},
	"sk": {"slk", "slo", "slovak", "slovacco"},
	"tl": {"tgl", "tagalog"},
	"ar": {"ara", "arabic", "arabo"},
	"he": {"heb", "hebrew", "ebraico"},
	"ja": {"jpn", "japanese", "giapponese"},
	"zh": {"zho", "chi", "chinese", "cinese"},
	"ko": {"kor", "korean", "coreano"},
}

var lookup = func() map[string]string {
	m := make(map[string]string)
	for code, names := range aliases {
		m[code] = code
		for _, n := range names {
			m[n] = code
		}
	}
	return m
}()

// ISO6391 returns the ISO 639-1 code for a code or alias, matched
// case-insensitively.
func ISO6391(language string) (string, bool) {
	code, ok := lookup[strings.ToLower(strings.TrimSpace(language))]
	return code, ok
}
