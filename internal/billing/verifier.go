package billing

import (
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// Verifier authenticates inbound Stripe webhook payloads.
//
// Verification runs over the exact raw request bytes; any re-encoding before
// the signature check would invalidate it. Nothing downstream may mutate
// state for a payload that fails here, however plausible its JSON looks.
type Verifier struct {
	secret string
}

// NewVerifier creates a verifier for the given signing secret (whsec_...).
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify checks the Stripe-Signature header against the raw payload and
// returns the parsed event. The API version pin is Stripe's, not ours, so a
// version mismatch alone does not reject the event.
func (v *Verifier) Verify(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
