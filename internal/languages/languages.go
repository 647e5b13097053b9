// Package languages lists the languages Mux can generate subtitles for.
package languages

import (
	"fmt"
	"sort"
)

const Default = "en"

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var subtitleLanguageMap = map[string]string{
	"bg": "Bulgarian",
	"ca": "Catalan",
	"cs": "Czech",
	"da": "Danish",
	"de": "German",
	"el": "Greek",
	"en": "English",
	"es": "Spanish",
	"fi": "Finnish",
	"fr": "French",
	"hr": "Croatian",
	"it": "Italian",
	"nl": "Dutch",
	"no": "Norwegian",
	"pl": "Polish",
	"pt": "Portuguese",
	"ro": "Romanian",
	"ru": "Russian",
	"sk": "Slovak",
	"sv": "Swedish",
	"tr": "Turkish",
	"uk": "Ukrainian",
}

func LanguageName(code string) string {
	return subtitleLanguageMap[code]
}

func IsValidSubtitleLanguage(code string) bool {
	_, ok := subtitleLanguageMap[code]
	return ok
}

// Subtitle returns the language for code. An empty code means Default.
func Subtitle(code string) (Language, error) {
	if code == "" {
		code = Default
	}
	name, ok := subtitleLanguageMap[code]
	if !ok {
		return Language{}, fmt.Errorf("unsupported subtitle language %q", code)
	}
	return Language{Code: code, Name: name}, nil
}

// SubtitleLanguages returns every supported language ordered by code.
func SubtitleLanguages() []Language {
	langs := make([]Language, 0, len(subtitleLanguageMap))
	for code, name := range subtitleLanguageMap {
		langs = append(langs, Language{Code: code, Name: name})
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].Code < langs[j].Code })
	return langs
}
