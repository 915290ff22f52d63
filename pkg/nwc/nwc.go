// Package nwc defines the payment collaborator boundary. Payment execution
// happens over a Nostr Wallet Connect channel owned by the implementation;
// the messaging client only carries the handle for higher-level flows.
package nwc

import "context"

// Payer settles and issues Lightning invoices on behalf of an agent.
type Payer interface {
	// PayInvoice pays a BOLT11 invoice and returns the payment preimage.
	PayInvoice(ctx context.Context, invoice string) (preimage string, err error)

	// MakeInvoice creates an invoice for the given amount.
	MakeInvoice(ctx context.Context, amountSats int64, description string) (invoice string, err error)

	// CheckInvoice reports whether an invoice has settled.
	CheckInvoice(ctx context.Context, invoice string) (settled bool, err error)
}
