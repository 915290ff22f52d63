// Package nostr provides the messaging client agents use to publish events,
// maintain profile metadata, and exchange encrypted direct messages over a
// set of relays. Wire-protocol transport, signing, and subscription mechanics
// are delegated to an EventRelay collaborator.
package nostr

import "context"

// Event kinds the client works with.
const (
	KindProfileMetadata = 0
	KindTextNote        = 1
	KindEncryptedDM     = 4
)

// Event is a signed relay event.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// TagValues returns every value of tags with the given name.
func (e *Event) TagValues(name string) []string {
	var out []string
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			out = append(out, tag[1])
		}
	}
	return out
}

// References reports whether the event carries an "e" tag naming id.
func (e *Event) References(id string) bool {
	for _, ref := range e.TagValues("e") {
		if ref == id {
			return true
		}
	}
	return false
}

// Filter is the complete query surface the client requires from a relay:
// event kinds, an author allow-list, tag-equality filters, a since lower
// bound, and a result-count limit.
type Filter struct {
	Kinds   []int
	Authors []string
	Tags    map[string][]string
	Since   *int64
	Limit   int
}

// Subscription delivers matching events until closed.
type Subscription interface {
	// Events returns the delivery channel. It is closed when the
	// subscription ends.
	Events() <-chan *Event

	// Close terminates the subscription.
	Close()
}

// EventRelay performs the wire-level work against a single relay endpoint:
// transport, event signing, payload encryption, and subscription mechanics.
// Relay-level errors are returned unmodified; the client does not retry them.
type EventRelay interface {
	// Query fetches stored events matching the filter, newest first.
	Query(ctx context.Context, f Filter) ([]*Event, error)

	// Publish signs the event with the relay's identity and sends it. On
	// success the event's ID, PubKey, and Sig fields are filled in.
	Publish(ctx context.Context, ev *Event) error

	// Subscribe opens a live subscription for events matching the filter.
	Subscribe(ctx context.Context, f Filter) (Subscription, error)

	// EncryptDM encrypts plaintext for the given recipient public key.
	EncryptDM(recipientPubKey, plaintext string) (string, error)

	// DecryptDM decrypts a direct-message payload from the given
	// counterparty public key.
	DecryptDM(counterpartyPubKey, ciphertext string) (string, error)
}

// Dialer produces an EventRelay for a relay URL. secretKey may be empty for
// read-only use.
type Dialer func(url, secretKey string) EventRelay
