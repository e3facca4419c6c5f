package hub

import "strings"

// Room keys are derived, not stored. A channel room is keyed by its
// channel id; a DM room is keyed by the sorted pair of user ids so
// both directions map to the same key.
const (
	channelKeyPrefix = "channel:"
	dmKeyPrefix      = "dm:"
)

// ChannelRoomKey returns the registry key for a channel.
func ChannelRoomKey(channelID string) string {
	return channelKeyPrefix + channelID
}

// DMRoomKey returns the registry key for a direct-message pair.
// DMRoomKey(a, b) == DMRoomKey(b, a).
func DMRoomKey(userA, userB string) string {
	if strings.Compare(userA, userB) > 0 {
		userA, userB = userB, userA
	}
	return dmKeyPrefix + userA + ":" + userB
}
