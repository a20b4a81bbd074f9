package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus_KnownValues(t *testing.T) {
	for _, raw := range []string{
		"trialing", "active", "past_due", "canceled", "unpaid",
		"incomplete", "incomplete_expired",
	} {
		status, known := NormalizeStatus(raw)
		assert.True(t, known, "status %q", raw)
		assert.Equal(t, Status(raw), status)
	}
}

func TestNormalizeStatus_UnknownFallsBackToActive(t *testing.T) {
	status, known := NormalizeStatus("paused")
	assert.False(t, known)
	assert.Equal(t, StatusActive, status)

	status, known = NormalizeStatus("")
	assert.False(t, known)
	assert.Equal(t, StatusActive, status)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, EventCheckoutCompleted, classify("checkout.session.completed"))
	assert.Equal(t, EventSubscriptionCreated, classify("customer.subscription.created"))
	assert.Equal(t, EventSubscriptionUpdated, classify("customer.subscription.updated"))
	assert.Equal(t, EventSubscriptionDeleted, classify("customer.subscription.deleted"))
	assert.Equal(t, EventIgnored, classify("invoice.paid"))
	assert.Equal(t, EventIgnored, classify("some.future.event"))
}
