package steamauth

import (
	"fmt"
	"strconv"
	"strings"
)

// steamIDOffset converts between 64-bit account ids and 32-bit community
// account ids.
const steamIDOffset = 76561197960265728

// textBetween returns the substring of text bound by start and end.
func textBetween(text, start, end string) (string, error) {
	i := strings.Index(text, start)
	if i < 0 {
		return "", fmt.Errorf("start delimiter %q not found", start)
	}
	text = text[i+len(start):]
	j := strings.Index(text, end)
	if j < 0 {
		return "", fmt.Errorf("end delimiter %q not found", end)
	}
	return text[:j], nil
}

// textsBetween returns every substring of text bound by start and end.
func textsBetween(text, start, end string) []string {
	var results []string
	for {
		segment, err := textBetween(text, start, end)
		if err != nil {
			return results
		}
		results = append(results, segment)
		i := strings.Index(text, start)
		text = text[i+len(start)+len(segment)+len(end):]
	}
}

// steamIDToAccountID converts a 64-bit account id to the 32-bit form
// used in trade offer URLs.
func steamIDToAccountID(steamID string) (string, error) {
	id, err := strconv.ParseInt(steamID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid steam id %q: %w", steamID, err)
	}
	return strconv.FormatInt(id-steamIDOffset, 10), nil
}

// accountIDToSteamID converts a 32-bit community account id to the
// 64-bit form.
func accountIDToSteamID(accountID string) (string, error) {
	id, err := strconv.ParseInt(accountID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid account id %q: %w", accountID, err)
	}
	return strconv.FormatInt(id+steamIDOffset, 10), nil
}
