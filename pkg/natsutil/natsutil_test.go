package natsutil

import (
	"testing"

	"github.com/nats-io/nats.go"
)

func TestNatsHeaderCarrierSetGet(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*natsHeaderCarrier)(msg)

	carrier.Set("traceparent", "00-abc-def-01")
	if got := carrier.Get("traceparent"); got != "00-abc-def-01" {
		t.Fatalf("Get = %q", got)
	}
	if keys := carrier.Keys(); len(keys) != 1 {
		t.Fatalf("Keys = %v", keys)
	}
}

func TestNatsHeaderCarrierNilHeader(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*natsHeaderCarrier)(msg)

	if got := carrier.Get("missing"); got != "" {
		t.Fatalf("Get on nil header = %q", got)
	}
	if keys := carrier.Keys(); keys != nil {
		t.Fatalf("Keys on nil header = %v", keys)
	}
}

func TestNatsHeaderCarrierOverwrite(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*natsHeaderCarrier)(msg)

	carrier.Set("k", "first")
	carrier.Set("k", "second")
	if got := carrier.Get("k"); got != "second" {
		t.Fatalf("Get after overwrite = %q", got)
	}
}
