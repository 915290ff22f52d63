package nostr

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	metrics "github.com/ehallmark/agentstr/pkg/observability"
)

// Listener is a handle to a background subscription. Stop terminates it
// deterministically; Done is closed once the listener goroutine has exited.
type Listener struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// ID returns the listener's unique identifier.
func (l *Listener) ID() string { return l.id }

// Stop terminates the listener. Safe to call more than once.
func (l *Listener) Stop() { l.cancel() }

// Done is closed when the listener has fully stopped.
func (l *Listener) Done() <-chan struct{} { return l.done }

// NoteOptions filters a public-post listener.
type NoteOptions struct {
	// Authors restricts delivery to posts from these keys (hex or npub).
	Authors []string

	// Tags restricts delivery to posts carrying any of these "t" tags.
	Tags []string

	// Since is the unix-seconds lower bound; 0 means from now.
	Since int64

	// CloseAfterFirst stops the listener after one delivered event.
	CloseAfterFirst bool
}

// ListenForNotes starts a background listener on the primary relay, invoking
// callback for each matching public post. The listener runs until Stop is
// called, the context is canceled, or (with CloseAfterFirst) one event is
// delivered.
func (c *Client) ListenForNotes(ctx context.Context, callback func(*Event), opts NoteOptions) (*Listener, error) {
	authors, err := decodeKeys(opts.Authors)
	if err != nil {
		return nil, err
	}
	since := opts.Since
	if since == 0 {
		since = time.Now().Unix()
	}
	f := Filter{
		Kinds:   []int{KindTextNote},
		Authors: authors,
		Since:   &since,
		Limit:   10,
	}
	if len(opts.Tags) > 0 {
		f.Tags = map[string][]string{"t": opts.Tags}
	}
	return c.listen(ctx, f, opts.CloseAfterFirst, func(ev *Event) bool {
		callback(ev)
		return true
	})
}

// DMOptions filters a direct-message listener.
type DMOptions struct {
	// From restricts delivery to messages from this key (hex or npub).
	From string

	// Since is the unix-seconds lower bound; 0 means from now.
	Since int64

	// CloseAfterFirst stops the listener after one delivered message.
	CloseAfterFirst bool
}

// ListenForDirectMessages starts a background listener for encrypted direct
// messages addressed to the client's own identity, invoking callback with
// each event and its decrypted content. Requires a signing identity.
func (c *Client) ListenForDirectMessages(ctx context.Context, callback func(ev *Event, content string), opts DMOptions) (*Listener, error) {
	if c.sk == "" {
		return nil, ErrReadOnly
	}
	var authors []string
	if opts.From != "" {
		hex, err := DecodePublicKey(opts.From)
		if err != nil {
			return nil, err
		}
		authors = []string{hex}
	}
	since := opts.Since
	if since == 0 {
		since = time.Now().Unix()
	}
	f := Filter{
		Kinds:   []int{KindEncryptedDM},
		Authors: authors,
		Tags:    map[string][]string{"p": {c.pk}},
		Since:   &since,
		Limit:   10,
	}
	return c.listen(ctx, f, opts.CloseAfterFirst, func(ev *Event) bool {
		if ev.PubKey == c.pk {
			return false
		}
		content, err := c.primary().DecryptDM(ev.PubKey, ev.Content)
		if err != nil {
			log.Printf("nostr: failed to decrypt message %s: %v", ev.ID, err)
			return false
		}
		callback(ev, content)
		return true
	})
}

// listen starts the shared listener goroutine. deliver returns true when the
// event reached the callback; only delivered events count toward
// closeAfterFirst.
func (c *Client) listen(ctx context.Context, f Filter, closeAfterFirst bool, deliver func(*Event) bool) (*Listener, error) {
	lctx, cancel := context.WithCancel(ctx)
	sub, err := c.primary().Subscribe(lctx, f)
	if err != nil {
		cancel()
		return nil, err
	}
	l := &Listener{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(l.done)
		defer cancel()
		defer sub.Close()
		for {
			select {
			case <-lctx.Done():
				return
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				if ev == nil {
					continue
				}
				if deliver(ev) {
					metrics.RecordListenerEvent(ev.Kind)
					if closeAfterFirst {
						return
					}
				}
			}
		}
	}()
	return l, nil
}

func decodeKeys(keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		hex, err := DecodePublicKey(k)
		if err != nil {
			return nil, err
		}
		out = append(out, hex)
	}
	return out, nil
}
