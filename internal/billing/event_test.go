package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test_secret"

func signedHeader(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

func TestVerifyEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","object":"subscription","status":"active"}}}`)

	_, err := VerifyEvent(payload, "t=1,v1=abc", "")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = VerifyEvent(payload, "  ", testSecret)
	assert.ErrorIs(t, err, ErrMissingSignature)

	_, err = VerifyEvent(payload, signedHeader(payload, "whsec_other"), testSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	evt, err := VerifyEvent(payload, signedHeader(payload, testSecret), testSecret)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", evt.ID)
	assert.Equal(t, EventSubscriptionUpdated, evt.Type)
}

func TestDecodeEvent(t *testing.T) {
	checkout := stripe.Event{
		ID:   "evt_c",
		Type: EventCheckoutCompleted,
		Data: &stripe.EventData{Raw: []byte(`{"id":"cs_1","client_reference_id":"user-1","customer":"cus_1","subscription":"sub_1","metadata":{"user_id":"user-1"}}`)},
	}
	evt, err := DecodeEvent(checkout)
	require.NoError(t, err)
	cc, ok := evt.(CheckoutCompleted)
	require.True(t, ok)
	assert.Equal(t, "user-1", cc.Session.ClientReferenceID)
	assert.Equal(t, "cus_1", cc.Session.Customer.ID)
	assert.Equal(t, "sub_1", cc.Session.Subscription.ID)

	deleted := stripe.Event{
		ID:   "evt_d",
		Type: EventSubscriptionDeleted,
		Data: &stripe.EventData{Raw: []byte(`{"id":"sub_1","status":"active","customer":"cus_1","cancel_at":1700000000}`)},
	}
	evt, err = DecodeEvent(deleted)
	require.NoError(t, err)
	sd, ok := evt.(SubscriptionDeleted)
	require.True(t, ok)
	assert.Equal(t, EventSubscriptionDeleted, sd.EventType())
	assert.Equal(t, int64(1700000000), sd.Subscription.CancelAt)

	created := stripe.Event{ID: "evt_n", Type: EventSubscriptionCreated, Data: &stripe.EventData{Raw: []byte(`{"id":"sub_2","status":"trialing"}`)}}
	evt, err = DecodeEvent(created)
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionCreated, evt.EventType())

	ignored := stripe.Event{ID: "evt_i", Type: "invoice.paid", Data: &stripe.EventData{Raw: []byte(`{}`)}}
	evt, err = DecodeEvent(ignored)
	require.NoError(t, err)
	assert.Nil(t, evt)

	broken := stripe.Event{ID: "evt_b", Type: EventSubscriptionUpdated, Data: &stripe.EventData{Raw: []byte(`{"status":`)}}
	_, err = DecodeEvent(broken)
	assert.Error(t, err)
}
