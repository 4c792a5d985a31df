package domain

import "strings"

const BaseLanguage = "en"

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var supportedLanguages = []Language{
	{Code: "en", Name: "English"},
	{Code: "sw", Name: "Swahili"},
	{Code: "ha", Name: "Hausa"},
	{Code: "am", Name: "Amharic"},
	{Code: "yo", Name: "Yoruba"},
}

func SupportedLanguages() []Language {
	return append([]Language(nil), supportedLanguages...)
}

// ResolveLanguage returns the supported language for code, or English.
func ResolveLanguage(code string) Language {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, language := range supportedLanguages {
		if language.Code == code {
			return language
		}
	}
	return supportedLanguages[0]
}
