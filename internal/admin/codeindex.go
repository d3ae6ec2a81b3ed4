package admin

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

const codeIndexContext = "rnp-recruitment 2026 admin access code index"

// codeIndex maps an access code to a keyed digest stored next to the bcrypt
// hash. It locates the account for a code without comparing every hash; the
// bcrypt hash stays the credential check.
type codeIndex struct {
	key [32]byte
}

func newCodeIndex(secret string) codeIndex {
	var idx codeIndex
	blake3.DeriveKey(codeIndexContext, []byte(secret), idx.key[:])
	return idx
}

func (c codeIndex) digest(code string) string {
	h, err := blake3.NewKeyed(c.key[:])
	if err != nil {
		panic("admin: blake3 keyed hash needs a 32 byte key: " + err.Error())
	}
	_, _ = h.WriteString(code)
	return hex.EncodeToString(h.Sum(nil))
}

// lookup returns the index of the account holding code's digest, or -1.
func (c codeIndex) lookup(users []User, code string) int {
	d := c.digest(code)
	for i := range users {
		if users[i].AccessCodeDigest == d {
			return i
		}
	}
	return -1
}
