package event

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" reservation_created ")
	require.NoError(t, err)
	assert.Equal(t, ReservationCreated, k)

	_, err = ParseKind("PARKING")
	assert.Error(t, err)
}

func TestKind_Text(t *testing.T) {
	data, err := json.Marshal(struct {
		Kind Kind `json:"kind"`
	}{System})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"SYSTEM"}`, string(data))

	var out struct {
		Kind Kind `json:"kind"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"RESERVATION_UPDATED"}`), &out))
	assert.Equal(t, ReservationUpdated, out.Kind)

	_, err = Kind(42).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestKind_IsNotification(t *testing.T) {
	for _, k := range []Kind{ReservationCreated, ReservationUpdated, System} {
		assert.True(t, k.IsNotification(), k.String())
	}
	for _, k := range []Kind{Keepalive, Connected, Disconnected} {
		assert.False(t, k.IsNotification(), k.String())
	}
}

func TestNewNotification(t *testing.T) {
	n := NewNotification(ReservationCreated, json.RawMessage(`{"reservation_id":"r-1"}`))

	id, err := uuid.Parse(n.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.False(t, n.OccurredAt.IsZero())
	assert.NoError(t, n.Validate())
}

func TestNotification_Validate(t *testing.T) {
	var nilNotification *Notification
	assert.Error(t, nilNotification.Validate())
	assert.Error(t, (&Notification{Kind: System}).Validate())
	assert.Error(t, (&Notification{ID: "a", Kind: Keepalive}).Validate())
	assert.Error(t, (&Notification{ID: "a", Kind: System, Payload: json.RawMessage(`{oops`)}).Validate())
	assert.NoError(t, (&Notification{ID: "a", Kind: System}).Validate())
}

func TestEncodeCache_ConcurrentAccess(t *testing.T) {
	n := NewNotification(System, nil)
	assert.Nil(t, n.GetCached())

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.SetCached([]byte("frame"))
			_ = n.GetCached()
		}()
	}
	wg.Wait()
	assert.Equal(t, []byte("frame"), n.GetCached())
}

func TestSignals(t *testing.T) {
	k := NewKeepalive()
	assert.Equal(t, Keepalive, k.GetKind())
	assert.Nil(t, k.GetPayload())
	assert.NotEmpty(t, k.GetID())
	assert.NotEqual(t, k.GetID(), NewKeepalive().GetID())
}
