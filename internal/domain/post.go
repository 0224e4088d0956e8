package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// Post is a piece of user content. Only its owner may change or remove it.
type Post struct {
	ID        int64
	OwnerID   int64
	Title     string
	Content   string
	Public    bool
	CreatedAt time.Time
}

// Fingerprint identifies the (title, content) pair of a post. Two posts with
// the same fingerprint are duplicates regardless of owner or visibility.
func (p Post) Fingerprint() string {
	return PostFingerprint(p.Title, p.Content)
}

// PostFingerprint returns the hex sha256 of the title length (8 bytes, big
// endian), the title and the content.
func PostFingerprint(title, content string) string {
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(title)))

	h := sha256.New()
	h.Write(size[:])
	h.Write([]byte(title))
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}
