package nostr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	gonostr "github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// relayConn implements EventRelay over a lazily-dialed go-nostr connection.
// The connection is cached and re-dialed if it drops.
type relayConn struct {
	url string
	sk  string

	mu   sync.Mutex
	conn *gonostr.Relay
}

// DialRelay is the default Dialer, backed by go-nostr. The connection is
// established on first use.
func DialRelay(url, secretKey string) EventRelay {
	return &relayConn{url: url, sk: secretKey}
}

func (r *relayConn) connect(ctx context.Context) (*gonostr.Relay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil && r.conn.IsConnected() {
		return r.conn, nil
	}
	conn, err := gonostr.RelayConnect(ctx, r.url)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", r.url, err)
	}
	r.conn = conn
	return conn, nil
}

func (r *relayConn) Query(ctx context.Context, f Filter) ([]*Event, error) {
	conn, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}
	evs, err := conn.QuerySync(ctx, toWireFilter(f))
	if err != nil {
		return nil, err
	}
	out := make([]*Event, 0, len(evs))
	for _, ev := range evs {
		out = append(out, fromWireEvent(ev))
	}
	return out, nil
}

func (r *relayConn) Publish(ctx context.Context, ev *Event) error {
	if r.sk == "" {
		return errors.New("nostr: relay has no signing key")
	}
	conn, err := r.connect(ctx)
	if err != nil {
		return err
	}
	wire := gonostr.Event{
		CreatedAt: gonostr.Timestamp(ev.CreatedAt),
		Kind:      ev.Kind,
		Tags:      toWireTags(ev.Tags),
		Content:   ev.Content,
	}
	if err := wire.Sign(r.sk); err != nil {
		return fmt.Errorf("sign event: %w", err)
	}
	ev.ID, ev.PubKey, ev.Sig = wire.ID, wire.PubKey, wire.Sig
	return conn.Publish(ctx, wire)
}

func (r *relayConn) Subscribe(ctx context.Context, f Filter) (Subscription, error) {
	conn, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}
	sub, err := conn.Subscribe(ctx, gonostr.Filters{toWireFilter(f)})
	if err != nil {
		return nil, err
	}
	out := make(chan *Event)
	go func() {
		defer close(out)
		for ev := range sub.Events {
			select {
			case out <- fromWireEvent(ev):
			case <-ctx.Done():
				return
			}
		}
	}()
	return &relaySubscription{sub: sub, events: out}, nil
}

func (r *relayConn) EncryptDM(recipientPubKey, plaintext string) (string, error) {
	if r.sk == "" {
		return "", errors.New("nostr: relay has no signing key")
	}
	shared, err := nip04.ComputeSharedSecret(recipientPubKey, r.sk)
	if err != nil {
		return "", fmt.Errorf("compute shared secret: %w", err)
	}
	return nip04.Encrypt(plaintext, shared)
}

func (r *relayConn) DecryptDM(counterpartyPubKey, ciphertext string) (string, error) {
	if r.sk == "" {
		return "", errors.New("nostr: relay has no signing key")
	}
	shared, err := nip04.ComputeSharedSecret(counterpartyPubKey, r.sk)
	if err != nil {
		return "", fmt.Errorf("compute shared secret: %w", err)
	}
	return nip04.Decrypt(ciphertext, shared)
}

type relaySubscription struct {
	sub    *gonostr.Subscription
	events chan *Event
}

func (s *relaySubscription) Events() <-chan *Event { return s.events }
func (s *relaySubscription) Close()                { s.sub.Unsub() }

func toWireFilter(f Filter) gonostr.Filter {
	wf := gonostr.Filter{
		Kinds:   f.Kinds,
		Authors: f.Authors,
		Limit:   f.Limit,
	}
	if len(f.Tags) > 0 {
		wf.Tags = make(gonostr.TagMap, len(f.Tags))
		for k, v := range f.Tags {
			wf.Tags[k] = v
		}
	}
	if f.Since != nil {
		ts := gonostr.Timestamp(*f.Since)
		wf.Since = &ts
	}
	return wf
}

func toWireTags(tags [][]string) gonostr.Tags {
	out := make(gonostr.Tags, 0, len(tags))
	for _, t := range tags {
		out = append(out, gonostr.Tag(t))
	}
	return out
}

func fromWireEvent(ev *gonostr.Event) *Event {
	tags := make([][]string, 0, len(ev.Tags))
	for _, t := range ev.Tags {
		tags = append(tags, []string(t))
	}
	return &Event{
		ID:        ev.ID,
		PubKey:    ev.PubKey,
		CreatedAt: int64(ev.CreatedAt),
		Kind:      ev.Kind,
		Tags:      tags,
		Content:   ev.Content,
		Sig:       ev.Sig,
	}
}

// DecodeSecretKey accepts a secret key in hex or bech32 "nsec" form and
// returns it in hex.
func DecodeSecretKey(key string) (string, error) {
	if strings.HasPrefix(key, "nsec") {
		prefix, value, err := nip19.Decode(key)
		if err != nil {
			return "", fmt.Errorf("decode nsec: %w", err)
		}
		if prefix != "nsec" {
			return "", fmt.Errorf("decode nsec: unexpected prefix %q", prefix)
		}
		return value.(string), nil
	}
	return key, nil
}

// DecodePublicKey accepts a public key in hex or bech32 "npub" form and
// returns it in hex.
func DecodePublicKey(key string) (string, error) {
	if strings.HasPrefix(key, "npub") {
		prefix, value, err := nip19.Decode(key)
		if err != nil {
			return "", fmt.Errorf("decode npub: %w", err)
		}
		if prefix != "npub" {
			return "", fmt.Errorf("decode npub: unexpected prefix %q", prefix)
		}
		return value.(string), nil
	}
	return key, nil
}

// DerivePublicKey returns the hex public key for a hex secret key.
func DerivePublicKey(secretKey string) (string, error) {
	return gonostr.GetPublicKey(secretKey)
}

// GenerateSecretKey creates a fresh hex secret key.
func GenerateSecretKey() string {
	return gonostr.GeneratePrivateKey()
}

// EncodeNpub returns the bech32 "npub" form of a hex public key.
func EncodeNpub(pubKey string) (string, error) {
	return nip19.EncodePublicKey(pubKey)
}
