package repository

import "strings"

// likeEscape is appended after every "LIKE ?" built from containsPattern.
// '!' is used rather than a backslash because MySQL and sqlite disagree on
// how a backslash literal is written.
const likeEscape = " ESCAPE '!'"

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern turns user input into a lower-cased substring pattern in
// which % and _ match themselves.
func containsPattern(s string) string {
	return "%" + likeReplacer.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}
