package rcon

import (
	"regexp"
	"strings"
)

// colorCodeRe matches Minecraft § formatting sequences.
var colorCodeRe = regexp.MustCompile(`§.`)

// StripColorCodes removes Minecraft formatting sequences from server output.
func StripColorCodes(s string) string {
	return colorCodeRe.ReplaceAllString(s, "")
}

// ParseOnlineList extracts players from grouped list output of the form
//
//	Admin: Alice, Bob
//	Player: Carol
//
// Lines that do not match are skipped; a malformed plugin response yields an
// empty (not nil-error) result.
func ParseOnlineList(output string) []OnlinePlayer {
	players := []OnlinePlayer{}
	for _, line := range strings.Split(StripColorCodes(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		role, names, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}

		for _, name := range strings.Split(names, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			players = append(players, OnlinePlayer{Role: role, Nick: name})
		}
	}
	return players
}
