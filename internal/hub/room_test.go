package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelRoomKey(t *testing.T) {
	assert.Equal(t, "channel:abc", ChannelRoomKey("abc"))
}

func TestDMRoomKeySymmetry(t *testing.T) {
	keyAB := DMRoomKey("user-x", "user-y")
	keyBA := DMRoomKey("user-y", "user-x")

	assert.Equal(t, keyAB, keyBA)
	assert.Equal(t, "dm:user-x:user-y", keyAB)
}

func TestDMRoomKeyDistinctPairs(t *testing.T) {
	assert.NotEqual(t, DMRoomKey("a", "b"), DMRoomKey("a", "c"))
}
