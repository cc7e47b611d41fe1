package gotmt

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultSourceLang is the language every entry is authored in.
const DefaultSourceLang = "en"

// DefaultLanguages is the bootstrap set inserted when no language exists yet.
var DefaultLanguages = []Language{
	{Code: "en", Name: "English", IsDefault: true},
	{Code: "es", Name: "Spanish", IsDefault: false},
	{Code: "fr", Name: "French", IsDefault: false},
}

// NLLBCodes maps short language codes to the FLORES-200 codes NLLB models expect.
var NLLBCodes = map[string]string{
	"en": "eng_Latn",
	"es": "spa_Latn",
	"fr": "fra_Latn",
	"de": "deu_Latn",
	"hi": "hin_Deva",
	"ta": "tam_Taml",
	"te": "tel_Telu",
	"zh": "zho_Hans",
	"ar": "arb_Arab",
	"it": "ita_Latn",
	"pt": "por_Latn",
	"bn": "ben_Beng",
	"mr": "mar_Deva",
	"pa": "pan_Guru",
	"gu": "guj_Gujr",
	"kn": "kan_Knda",
	"ml": "mal_Mlym",
	"ur": "urd_Arab",
}

// RTLLanguages contains language codes that use right-to-left text direction.
var RTLLanguages = map[string]bool{
	"ar": true, // Arabic
	"he": true, // Hebrew
	"fa": true, // Persian/Farsi
	"ur": true, // Urdu
	"ps": true, // Pashto
	"sd": true, // Sindhi
	"ug": true, // Uyghur
}

// NormalizeCode trims and lower-cases a language code.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// ParseCode normalizes code and checks that it is a well-formed, known
// BCP 47 language tag.
func ParseCode(code string) (string, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return "", &ValidationError{Field: "code", Message: "cannot be blank"}
	}
	if _, err := language.Parse(normalized); err != nil {
		return "", &ValidationError{Field: "code", Message: "not a valid language tag"}
	}
	return normalized, nil
}

// LanguageName returns the English display name for a language code.
// Falls back to the code itself if the tag is unknown.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

// NLLBCode returns the NLLB code for a language, trying the base language
// when the full code is not mapped ("pt-br" -> "pt").
func NLLBCode(code string) (string, bool) {
	code = NormalizeCode(code)
	if nllb, ok := NLLBCodes[code]; ok {
		return nllb, true
	}
	nllb, ok := NLLBCodes[baseLang(code)]
	return nllb, ok
}

// GetDirection returns "rtl" for right-to-left languages, "ltr" otherwise.
func GetDirection(code string) string {
	if RTLLanguages[baseLang(code)] {
		return "rtl"
	}
	return "ltr"
}

// IsRTL returns true if the language uses right-to-left text direction.
func IsRTL(code string) bool {
	return GetDirection(code) == "rtl"
}

// baseLang extracts the base language code (e.g., "pt" from "pt-BR" or "pt_BR").
func baseLang(code string) string {
	code = strings.ToLower(code)
	if idx := strings.IndexAny(code, "-_"); idx >= 0 {
		return code[:idx]
	}
	return code
}
