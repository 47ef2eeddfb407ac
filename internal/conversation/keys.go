package conversation

import "strings"

// Conversation key prefixes.
const (
	groupPrefix = "group_"
	userPrefix  = "user_"
)

// GroupKey returns the conversation key of a group chat.
func GroupKey(groupID string) string { return groupPrefix + groupID }

// UserKey returns the conversation key of a one-to-one chat.
func UserKey(userID string) string { return userPrefix + userID }

// IsGroup reports whether key denotes a multi-party conversation.
func IsGroup(key string) bool { return strings.HasPrefix(key, groupPrefix) }

// GroupID returns the group id encoded in key, or false when key is not a
// group key.
func GroupID(key string) (string, bool) {
	return strings.CutPrefix(key, groupPrefix)
}
