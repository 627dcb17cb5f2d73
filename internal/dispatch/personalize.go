package dispatch

import "strings"

// Placeholders are replaced by the recipient's display name.
var Placeholders = []string{"{prénom}", "{prenom}", "{name}"}

// Personalize substitutes every placeholder in text with name, or with
// fallback when name is blank.
func Personalize(text, name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fallback
	}
	for _, p := range Placeholders {
		text = strings.ReplaceAll(text, p, name)
	}
	return text
}
