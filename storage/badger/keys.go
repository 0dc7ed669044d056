package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/gamescout/core"
)

// Key prefixes for different data types
const (
	appIDPrefix     = "appid:"
	gamePrefix      = "game:"
	categoryPrefix  = "gcat:"
	genrePrefix     = "ggen:"
	embeddingPrefix = "emb:"
)

// appendID writes id in BigEndian order so lexicographic sort is numeric.
func appendID(prefix string, id core.AppID) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// idFromKey recovers the identifier from a key built by appendID.
func idFromKey(prefix string, key []byte) core.AppID {
	return core.AppID(binary.BigEndian.Uint64(key[len(prefix):]))
}

// makeAppIDKey generates a key for a catalog entry.
func makeAppIDKey(id core.AppID) []byte {
	return appendID(appIDPrefix, id)
}

// makeGameKey generates a key for a gold record.
func makeGameKey(id core.AppID) []byte {
	return appendID(gamePrefix, id)
}

// makeEmbeddingKey generates a key for an embedding record.
func makeEmbeddingKey(id core.AppID) []byte {
	return appendID(embeddingPrefix, id)
}

// makeLabelKey generates a key for a distinct label.
// Format: prefix + content hash of the label
func makeLabelKey(prefix, label string) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(label)))
	return buf
}

// makeCheckpointKey generates a key for stage checkpoints.
func makeCheckpointKey(stage string) []byte {
	return []byte(fmt.Sprintf("%s:chkpt", stage))
}
