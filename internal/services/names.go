package services

import (
	"strings"
	"unicode"
)

// Marker prefixes stripped by CleanName, in the order they are removed.
// "★ StatTrak™ Karambit" loses the star first, then StatTrak.
var nameMarkerPrefixes = []string{
	"★ ",
	"StatTrak™ ",
	"Souvenir ",
}

// Wear conditions that may trail a market name in parentheses
var wearConditions = []string{
	"Factory New",
	"Minimal Wear",
	"Field-Tested",
	"Well-Worn",
	"Battle-Scarred",
}

// CleanName strips rarity, StatTrak and souvenir markers and the trailing
// wear condition from a market name. "★ StatTrak™ Karambit | Fade (Factory New)"
// becomes "Karambit | Fade".
func CleanName(name string) string {
	name = strings.TrimSpace(name)
	for _, prefix := range nameMarkerPrefixes {
		name = strings.TrimPrefix(name, prefix)
	}
	for _, wear := range wearConditions {
		suffix := " (" + wear + ")"
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}
	return strings.TrimSpace(name)
}

// ruSearchTerms maps Russian search slang to the English words used in
// market names. Applied in order; every entry replaces all occurrences.
var ruSearchTerms = []struct{ ru, en string }{
	{"коллекция", "collection"},
	{"капсула", "capsule"},
	{"наклейка", "sticker"},
	{"сувенир", "souvenir"},
	{"перчатки", "gloves"},
	{"граффити", "graffiti"},
	{"нашивка", "patch"},
	{"брелок", "charm"},
	{"кейс", "case"},
	{"набор", "package"},
	{"нож", "knife"},
	{"авп", "awp"},
	{"калаш", "ak-47"},
	{"эмка", "m4a"},
	{"юсп", "usp"},
	{"глок", "glock"},
	{"дигл", "desert eagle"},
}

// hasCyrillic reports whether s contains any Cyrillic letter
func hasCyrillic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

// normalizeQuery lower-cases a search query and, when it contains Cyrillic,
// rewrites known Russian terms to their English equivalents
func normalizeQuery(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if !hasCyrillic(q) {
		return q
	}
	for _, term := range ruSearchTerms {
		if strings.Contains(q, term.ru) {
			q = strings.ReplaceAll(q, term.ru, term.en)
		}
	}
	return q
}
