package chat

import "strings"

// Matches reports whether c matches query, case-insensitively, on its group
// name or on the name of any participant other than selfID. An empty query
// matches every chat.
func (c *Chat) Matches(query, selfID string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(c.GroupName), q) {
		return true
	}
	for _, p := range c.Participants {
		if p.ID != selfID && strings.Contains(strings.ToLower(p.Name), q) {
			return true
		}
	}
	return false
}

// Matches reports whether the user's name contains query, case-insensitively.
func (u *User) Matches(query string) bool {
	return strings.Contains(strings.ToLower(u.Name), strings.ToLower(strings.TrimSpace(query)))
}
