package domain

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
)

// Key categories held in Credentials.Keys.
const (
	KeyCategoryPreKey          = "pre-key"
	KeyCategorySession         = "session"
	KeyCategorySenderKey       = "sender-key"
	KeyCategoryAppStateSync    = "app-state-sync-key"
	KeyCategorySenderKeyMemo   = "sender-key-memory"
	KeyCategoryAppStateVersion = "app-state-sync-version"
)

// KeyPair is an opaque public/private key pair.
type KeyPair struct {
	Public  []byte `json:"public"`
	Private []byte `json:"private"`
}

// SignedKeyPair is a key pair with a signature from the identity key.
type SignedKeyPair struct {
	KeyID     uint32  `json:"key_id"`
	KeyPair   KeyPair `json:"key_pair"`
	Signature []byte  `json:"signature"`
}

// Identity is the long-term device identity.
type Identity struct {
	// Me is the account JID once pairing completed (empty before).
	Me string `json:"me,omitempty"`

	// PushName is the display name reported by the peer.
	PushName string `json:"push_name,omitempty"`

	RegistrationID uint32        `json:"registration_id"`
	NoiseKey       KeyPair       `json:"noise_key"`
	IdentityKey    KeyPair       `json:"identity_key"`
	SignedPreKey   SignedKeyPair `json:"signed_pre_key"`
	AdvSecretKey   []byte        `json:"adv_secret_key"`

	// Registered is true once the device is linked to an account.
	Registered bool `json:"registered"`
}

// Credentials is the durable identity plus mutable key material of a session.
//
// Exactly one instance is live per process. It is mutated in place by Apply
// and persisted as a Clone so that the store never observes a half-applied
// update.
type Credentials struct {
	Identity Identity `json:"identity"`

	// Keys holds session key material by category and key id.
	Keys map[string]map[string][]byte `json:"keys"`

	// Revision increases with every applied update.
	Revision uint64 `json:"revision"`
}

// NewCredentials returns fresh, unregistered credentials awaiting pairing.
// Key material beyond the registration id is generated by the transport
// during pairing and arrives as credential updates.
func NewCredentials() *Credentials {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return &Credentials{
		Identity: Identity{
			// Registration ids are 14-bit values.
			RegistrationID: binary.BigEndian.Uint32(buf[:]) & 0x3fff,
		},
		Keys: make(map[string]map[string][]byte),
	}
}

// IsRegistered reports whether pairing completed for these credentials.
func (c *Credentials) IsRegistered() bool {
	return c != nil && c.Identity.Registered
}

// Clone returns a deep copy.
func (c *Credentials) Clone() *Credentials {
	if c == nil {
		return nil
	}
	out := &Credentials{
		Identity: c.Identity.clone(),
		Keys:     make(map[string]map[string][]byte, len(c.Keys)),
		Revision: c.Revision,
	}
	for category, entries := range c.Keys {
		copied := make(map[string][]byte, len(entries))
		for id, v := range entries {
			copied[id] = bytes.Clone(v)
		}
		out.Keys[category] = copied
	}
	return out
}

func (i Identity) clone() Identity {
	i.NoiseKey = i.NoiseKey.clone()
	i.IdentityKey = i.IdentityKey.clone()
	i.SignedPreKey.KeyPair = i.SignedPreKey.KeyPair.clone()
	i.SignedPreKey.Signature = bytes.Clone(i.SignedPreKey.Signature)
	i.AdvSecretKey = bytes.Clone(i.AdvSecretKey)
	return i
}

func (k KeyPair) clone() KeyPair {
	return KeyPair{Public: bytes.Clone(k.Public), Private: bytes.Clone(k.Private)}
}

// Equal reports whether two credentials hold identical material.
func (c *Credentials) Equal(other *Credentials) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Revision != other.Revision || !c.Identity.equal(other.Identity) {
		return false
	}
	if countKeys(c.Keys) != countKeys(other.Keys) {
		return false
	}
	for category, entries := range c.Keys {
		for id, v := range entries {
			ov, ok := other.Keys[category][id]
			if !ok || !bytes.Equal(v, ov) {
				return false
			}
		}
	}
	return true
}

func (i Identity) equal(o Identity) bool {
	return i.Me == o.Me &&
		i.PushName == o.PushName &&
		i.RegistrationID == o.RegistrationID &&
		i.Registered == o.Registered &&
		i.NoiseKey.equal(o.NoiseKey) &&
		i.IdentityKey.equal(o.IdentityKey) &&
		i.SignedPreKey.KeyID == o.SignedPreKey.KeyID &&
		i.SignedPreKey.KeyPair.equal(o.SignedPreKey.KeyPair) &&
		bytes.Equal(i.SignedPreKey.Signature, o.SignedPreKey.Signature) &&
		bytes.Equal(i.AdvSecretKey, o.AdvSecretKey)
}

func (k KeyPair) equal(o KeyPair) bool {
	return bytes.Equal(k.Public, o.Public) && bytes.Equal(k.Private, o.Private)
}

func countKeys(keys map[string]map[string][]byte) int {
	n := 0
	for _, entries := range keys {
		n += len(entries)
	}
	return n
}

// KeyCount returns the number of key entries across all categories.
func (c *Credentials) KeyCount() int {
	if c == nil {
		return 0
	}
	return countKeys(c.Keys)
}

// CredentialPatch is the delta carried by a credential-update event.
type CredentialPatch struct {
	// Identity replaces the identity when non-nil.
	Identity *Identity `json:"identity,omitempty"`

	// Keys upserts key entries; a nil value deletes the entry.
	Keys map[string]map[string][]byte `json:"keys,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p CredentialPatch) IsEmpty() bool {
	return p.Identity == nil && len(p.Keys) == 0
}

// Apply mutates the credentials in place and bumps the revision.
func (c *Credentials) Apply(p CredentialPatch) {
	if p.Identity != nil {
		c.Identity = p.Identity.clone()
	}
	if c.Keys == nil {
		c.Keys = make(map[string]map[string][]byte)
	}
	for category, entries := range p.Keys {
		bucket := c.Keys[category]
		if bucket == nil {
			bucket = make(map[string][]byte, len(entries))
			c.Keys[category] = bucket
		}
		for id, v := range entries {
			if v == nil {
				delete(bucket, id)
				continue
			}
			bucket[id] = bytes.Clone(v)
		}
		if len(bucket) == 0 {
			delete(c.Keys, category)
		}
	}
	c.Revision++
}

// UserPart returns the user portion of a JID: "9471...:12@s.whatsapp.net" -> "9471...".
func UserPart(jid string) string {
	user := jid
	if i := strings.IndexByte(user, '@'); i >= 0 {
		user = user[:i]
	}
	if i := strings.IndexByte(user, ':'); i >= 0 {
		user = user[:i]
	}
	return user
}

// UserJID builds a user JID from a phone number or identifier.
func UserJID(user string) string {
	if strings.Contains(user, "@") {
		return user
	}
	return fmt.Sprintf("%s@%s", user, ServerUser)
}
