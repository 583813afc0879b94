package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"milkledger/internal/core"
)

type fakeToken struct {
	paho.Token
	err     error
	timeout bool
}

func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	paho.Client
	sent  []published
	token *fakeToken
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) paho.Token {
	c.sent = append(c.sent, published{topic: topic, retained: retained, payload: payload.([]byte)})
	if c.token != nil {
		return c.token
	}
	return &fakeToken{}
}

func (c *fakeClient) IsConnected() bool { return false }

func TestNotifyPublishesChangeAndState(t *testing.T) {
	client := &fakeClient{}
	n := NewWithClient(client, "farm/", "milkRecords")
	change := core.Change{Op: core.OpUpdate, Index: 1, Count: 3, Version: "v1", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}

	if err := n.Notify(context.Background(), change); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(client.sent) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(client.sent))
	}

	first, second := client.sent[0], client.sent[1]
	if first.topic != "farm/milkRecords/changes" || first.retained {
		t.Errorf("unexpected change publish %+v", first)
	}
	var got core.Change
	if err := json.Unmarshal(first.payload, &got); err != nil || got.Op != core.OpUpdate || got.Index != 1 {
		t.Errorf("bad change payload %s (%v)", first.payload, err)
	}

	if second.topic != "farm/milkRecords/state" || !second.retained {
		t.Errorf("unexpected state publish %+v", second)
	}
	var st statePayload
	if err := json.Unmarshal(second.payload, &st); err != nil || st.Count != 3 || st.Version != "v1" {
		t.Errorf("bad state payload %s (%v)", second.payload, err)
	}
}

func TestNotifyErrors(t *testing.T) {
	tests := []struct {
		name  string
		token *fakeToken
	}{
		{"broker error", &fakeToken{err: errors.New("not authorized")}},
		{"timeout", &fakeToken{timeout: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{token: tt.token}
			n := NewWithClient(client, "", "milkRecords")
			if err := n.Notify(context.Background(), core.Change{Op: core.OpCreate}); err == nil {
				t.Fatal("expected error")
			}
			if len(client.sent) != 1 {
				t.Errorf("state should not be published after a failed change, got %d publishes", len(client.sent))
			}
		})
	}
}

func TestDefaultPrefix(t *testing.T) {
	n := NewWithClient(&fakeClient{}, "", "slot")
	if n.ChangesTopic() != "milkledger/slot/changes" {
		t.Errorf("unexpected topic %q", n.ChangesTopic())
	}
	n.Close()
}

func TestNewRequiresBroker(t *testing.T) {
	if _, err := New(Config{}, "slot"); err == nil {
		t.Fatal("expected error without broker")
	}
}
