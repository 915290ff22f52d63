package nostr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ehallmark/agentstr/internal/observability"
	"github.com/ehallmark/agentstr/pkg/nwc"
	metrics "github.com/ehallmark/agentstr/pkg/observability"
)

var (
	// ErrReadOnly is returned by signing operations when the client was
	// built without a secret key.
	ErrReadOnly = errors.New("nostr: client has no signing identity")

	// ErrNoResponse is returned by SendDirectMessageAndWait when no
	// correlated reply arrives before the timeout. Distinct from a reply
	// with empty content.
	ErrNoResponse = errors.New("nostr: no response received before timeout")
)

// DecryptedMessage is a received direct message with its decrypted content.
type DecryptedMessage struct {
	Event   *Event
	Content string
}

// Client is the messaging facade for one agent identity. Synchronous
// operations run against the primary relay (index 0); there is no automatic
// failover to secondary relays. A Client without a secret key is read-only.
//
// Client is safe for concurrent use.
type Client struct {
	relays  []string
	sk      string
	pk      string
	payer   nwc.Payer
	dial    Dialer
	limiter *rate.Limiter

	mu    sync.Mutex
	conns map[string]EventRelay
}

// Option configures a Client.
type Option func(*Client) error

// WithSecretKey sets the signing identity from a hex or nsec secret key.
func WithSecretKey(key string) Option {
	return func(c *Client) error {
		sk, err := DecodeSecretKey(key)
		if err != nil {
			return err
		}
		pk, err := DerivePublicKey(sk)
		if err != nil {
			return fmt.Errorf("derive public key: %w", err)
		}
		c.sk, c.pk = sk, pk
		return nil
	}
}

// WithPayer attaches a payment collaborator handle.
func WithPayer(p nwc.Payer) Option {
	return func(c *Client) error {
		c.payer = p
		return nil
	}
}

// WithDialer replaces the relay dialer. Used by tests to run against an
// in-process relay.
func WithDialer(d Dialer) Option {
	return func(c *Client) error {
		c.dial = d
		return nil
	}
}

// WithPublishRate bounds outbound publishes. The default is 5 events per
// second with a burst of 10.
func WithPublishRate(limit rate.Limit, burst int) Option {
	return func(c *Client) error {
		c.limiter = rate.NewLimiter(limit, burst)
		return nil
	}
}

// New creates a Client for the given relay list, primary first.
func New(relays []string, opts ...Option) (*Client, error) {
	if len(relays) == 0 {
		return nil, errors.New("nostr: at least one relay is required")
	}
	c := &Client{
		relays:  relays,
		dial:    DialRelay,
		limiter: rate.NewLimiter(5, 10),
		conns:   make(map[string]EventRelay),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// PublicKey returns the client's hex public key, or "" for a read-only
// client.
func (c *Client) PublicKey() string { return c.pk }

// Payer returns the attached payment collaborator, or nil.
func (c *Client) Payer() nwc.Payer { return c.payer }

// Relays returns the configured relay list.
func (c *Client) Relays() []string { return c.relays }

// primary returns the relay connection for relays[0], dialing on first use.
func (c *Client) primary() EventRelay {
	c.mu.Lock()
	defer c.mu.Unlock()
	url := c.relays[0]
	conn, ok := c.conns[url]
	if !ok {
		conn = c.dial(url, c.sk)
		c.conns[url] = conn
	}
	return conn
}

func (c *Client) publish(ctx context.Context, ev *Event) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := c.primary().Publish(ctx, ev); err != nil {
		return err
	}
	metrics.RecordEventPublished(ev.Kind)
	return nil
}

// ReadPostsByTags returns public posts carrying any of the given "t" tags
// from the primary relay, newest first, up to limit. limit <= 0 defaults
// to 10.
func (c *Client) ReadPostsByTags(ctx context.Context, tags []string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 10
	}
	return c.primary().Query(ctx, Filter{
		Kinds: []int{KindTextNote},
		Tags:  map[string][]string{"t": tags},
		Limit: limit,
	})
}

// PublishNote publishes a public post with optional "t" tags and returns the
// signed event.
func (c *Client) PublishNote(ctx context.Context, content string, tags []string) (*Event, error) {
	if c.sk == "" {
		return nil, ErrReadOnly
	}
	var eventTags [][]string
	for _, t := range tags {
		eventTags = append(eventTags, []string{"t", t})
	}
	ev := &Event{
		Kind:      KindTextNote,
		CreatedAt: time.Now().Unix(),
		Tags:      eventTags,
		Content:   content,
	}
	if err := c.publish(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// ProfileMetadata returns the most recent profile metadata for the given
// public key (hex or npub; "" means the client's own identity), or nil if
// none exists.
func (c *Client) ProfileMetadata(ctx context.Context, pubKey string) (*Metadata, error) {
	if pubKey == "" {
		pubKey = c.pk
	}
	if pubKey == "" {
		return nil, errors.New("nostr: no public key given and client has no identity")
	}
	hex, err := DecodePublicKey(pubKey)
	if err != nil {
		return nil, err
	}
	evs, err := c.primary().Query(ctx, Filter{
		Kinds:   []int{KindProfileMetadata},
		Authors: []string{hex},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(evs) == 0 {
		return nil, nil
	}
	return ParseMetadata(evs[0])
}

// UpdateMetadata applies a partial overlay onto the client's stored profile
// and publishes the result. Fields not set in upd keep their previous value.
// When the merged profile serializes identically to the stored one, the
// publish is skipped.
func (c *Client) UpdateMetadata(ctx context.Context, upd MetadataUpdate) error {
	if c.sk == "" {
		return ErrReadOnly
	}
	prev, err := c.ProfileMetadata(ctx, "")
	if err != nil {
		return err
	}
	var base Metadata
	if prev != nil {
		base = *prev
	}
	merged := upd.apply(base)

	content, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("nostr: encode profile metadata: %w", err)
	}
	if prev != nil {
		prevContent, err := json.Marshal(*prev)
		if err == nil && bytes.Equal(prevContent, content) {
			log.Printf("nostr: metadata unchanged, skipping publish")
			return nil
		}
	}

	ev := &Event{
		Kind:      KindProfileMetadata,
		CreatedAt: time.Now().Unix(),
		Content:   string(content),
	}
	return c.publish(ctx, ev)
}

// SendDirectMessage publishes an encrypted direct message to the recipient.
// eventRef, if non-empty, threads the message as a reply to a prior event.
// Fire-and-forget: no acknowledgment is awaited.
func (c *Client) SendDirectMessage(ctx context.Context, recipient, message, eventRef string) error {
	_, err := c.sendDM(ctx, recipient, message, eventRef)
	return err
}

func (c *Client) sendDM(ctx context.Context, recipient, message, eventRef string) (*Event, error) {
	if c.sk == "" {
		return nil, ErrReadOnly
	}
	hex, err := DecodePublicKey(recipient)
	if err != nil {
		return nil, err
	}
	ciphertext, err := c.primary().EncryptDM(hex, message)
	if err != nil {
		return nil, err
	}
	tags := [][]string{{"p", hex}}
	if eventRef != "" {
		tags = append(tags, []string{"e", eventRef})
	}
	ev := &Event{
		Kind:      KindEncryptedDM,
		CreatedAt: time.Now().Unix(),
		Tags:      tags,
		Content:   ciphertext,
	}
	if err := c.publish(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// SendDirectMessageAndWait sends an encrypted direct message and blocks until
// a correlated reply arrives or timeout elapses. Timeout is signaled with
// ErrNoResponse.
func (c *Client) SendDirectMessageAndWait(ctx context.Context, recipient, message string, timeout time.Duration, eventRef string) (*DecryptedMessage, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "nostr.dm_roundtrip",
		trace.WithAttributes(attribute.String("dm.recipient", recipient)),
	)
	defer span.End()

	if c.sk == "" {
		return nil, ErrReadOnly
	}
	hex, err := DecodePublicKey(recipient)
	if err != nil {
		return nil, err
	}

	// Subscribe before sending so a fast reply cannot slip past.
	since := time.Now().Unix()
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sub, err := c.primary().Subscribe(subCtx, Filter{
		Kinds:   []int{KindEncryptedDM},
		Authors: []string{hex},
		Tags:    map[string][]string{"p": {c.pk}},
		Since:   &since,
		Limit:   10,
	})
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	sent, err := c.sendDM(ctx, recipient, message, eventRef)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			metrics.RecordDMTimeout()
			return nil, ErrNoResponse
		case ev, ok := <-sub.Events():
			if !ok {
				return nil, errors.New("nostr: subscription closed before a response arrived")
			}
			if !correlated(ev, sent.ID) {
				continue
			}
			plaintext, err := c.primary().DecryptDM(hex, ev.Content)
			if err != nil {
				log.Printf("nostr: failed to decrypt reply %s: %v", ev.ID, err)
				continue
			}
			metrics.RecordDMRoundtrip(time.Since(start))
			return &DecryptedMessage{Event: ev, Content: plaintext}, nil
		}
	}
}

// correlated accepts a reply that references the sent event, or one carrying
// no event references at all (clients that reply without threading).
func correlated(ev *Event, sentID string) bool {
	refs := ev.TagValues("e")
	if len(refs) == 0 {
		return true
	}
	return ev.References(sentID)
}
