// Package language knows which languages the pipeline can translate
// between and how to name them.
package language

import (
	"fmt"
	"sort"
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type Language struct {
	Code       string // ISO 639-1
	Name       string
	NativeName string
}

// Auto is only meaningful as a transcription hint; translation always needs
// an explicit pair.
var Auto = Language{Code: "", Name: "Auto-detect"}

var languages = []Language{
	{"af", "Afrikaans", "Afrikaans"},
	{"ar", "Arabic", "العربية"},
	{"hy", "Armenian", "Հայերեն"},
	{"az", "Azerbaijani", "Azərbaycan"},
	{"be", "Belarusian", "Беларуская"},
	{"bs", "Bosnian", "Bosanski"},
	{"bg", "Bulgarian", "Български"},
	{"ca", "Catalan", "Català"},
	{"zh", "Chinese", "中文"},
	{"hr", "Croatian", "Hrvatski"},
	{"cs", "Czech", "Čeština"},
	{"da", "Danish", "Dansk"},
	{"nl", "Dutch", "Nederlands"},
	{"en", "English", "English"},
	{"et", "Estonian", "Eesti"},
	{"fi", "Finnish", "Suomi"},
	{"fr", "French", "Français"},
	{"gl", "Galician", "Galego"},
	{"de", "German", "Deutsch"},
	{"el", "Greek", "Ελληνικά"},
	{"he", "Hebrew", "עברית"},
	{"hi", "Hindi", "हिन्दी"},
	{"hu", "Hungarian", "Magyar"},
	{"is", "Icelandic", "Íslenska"},
	{"id", "Indonesian", "Bahasa Indonesia"},
	{"it", "Italian", "Italiano"},
	{"ja", "Japanese", "日本語"},
	{"kn", "Kannada", "ಕನ್ನಡ"},
	{"kk", "Kazakh", "Қазақ"},
	{"ko", "Korean", "한국어"},
	{"lv", "Latvian", "Latviešu"},
	{"lt", "Lithuanian", "Lietuvių"},
	{"mk", "Macedonian", "Македонски"},
	{"ms", "Malay", "Bahasa Melayu"},
	{"mr", "Marathi", "मराठी"},
	{"mi", "Maori", "Māori"},
	{"ne", "Nepali", "नेपाली"},
	{"no", "Norwegian", "Norsk"},
	{"fa", "Persian", "فارسی"},
	{"pl", "Polish", "Polski"},
	{"pt", "Portuguese", "Português"},
	{"ro", "Romanian", "Română"},
	{"ru", "Russian", "Русский"},
	{"sr", "Serbian", "Српски"},
	{"sk", "Slovak", "Slovenčina"},
	{"sl", "Slovenian", "Slovenščina"},
	{"es", "Spanish", "Español"},
	{"sw", "Swahili", "Kiswahili"},
	{"sv", "Swedish", "Svenska"},
	{"tl", "Tagalog", "Tagalog"},
	{"ta", "Tamil", "தமிழ்"},
	{"th", "Thai", "ไทย"},
	{"tr", "Turkish", "Türkçe"},
	{"uk", "Ukrainian", "Українська"},
	{"ur", "Urdu", "اردو"},
	{"vi", "Vietnamese", "Tiếng Việt"},
	{"cy", "Welsh", "Cymraeg"},
}

var byCode = func() map[string]Language {
	m := make(map[string]Language, len(languages))
	for _, l := range languages {
		m[l.Code] = l
	}
	return m
}()

// Normalize lowercases code, trims it and drops any region subtag, so
// "EN-us" and "en_GB" both become "en".
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

// Lookup finds a supported language by code after normalization.
func Lookup(code string) (Language, bool) {
	l, ok := byCode[Normalize(code)]
	return l, ok
}

// FromCode is Lookup that falls back to Auto.
func FromCode(code string) Language {
	if l, ok := Lookup(code); ok {
		return l
	}
	return Auto
}

// IsSupported reports whether code names a language we can translate.
// The empty code is not supported.
func IsSupported(code string) bool {
	_, ok := Lookup(code)
	return ok
}

// IsValidHint accepts supported codes and the empty auto-detect code.
func IsValidHint(code string) bool {
	return strings.TrimSpace(code) == "" || IsSupported(code)
}

// List returns all supported languages sorted by English name.
func List() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func Codes() []string {
	codes := make([]string, len(languages))
	for i, l := range languages {
		codes[i] = l.Code
	}
	return codes
}

// Label returns a human-readable label, e.g. "Spanish (es)" or
// "English (United States) (en-US)".
func Label(code string) string {
	if code == "" {
		return Auto.Name
	}
	tag, err := xlang.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return fmt.Sprintf("language '%s'", code)
	}
	name := display.English.Tags().Name(tag)
	if name == "" || strings.EqualFold(name, code) {
		return fmt.Sprintf("language '%s'", code)
	}
	return fmt.Sprintf("%s (%s)", name, code)
}

// Name is the plain English name used in prompts. Unknown codes are returned
// as given.
func Name(code string) string {
	if l, ok := Lookup(code); ok {
		return l.Name
	}
	return code
}
