package kafka

import "testing"

func TestDLQTopicPrefix(t *testing.T) {
	if DLQTopicPrefix != "sales.dlq" {
		t.Errorf("DLQTopicPrefix = %q, want %q", DLQTopicPrefix, "sales.dlq")
	}
}

func TestDLQTopic(t *testing.T) {
	tests := []struct {
		name          string
		originalTopic string
		want          string
	}{
		{
			name:          "purchase received",
			originalTopic: "sales.purchase.received",
			want:          "sales.dlq.sales.purchase.received",
		},
		{
			name:          "stock updated",
			originalTopic: "sales.stock.updated",
			want:          "sales.dlq.sales.stock.updated",
		},
		{
			name:          "bare topic",
			originalTopic: "purchases",
			want:          "sales.dlq.purchases",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DLQTopic(tt.originalTopic)
			if got != tt.want {
				t.Errorf("DLQTopic(%q) = %q, want %q", tt.originalTopic, got, tt.want)
			}
		})
	}
}

func TestNewConsumer_DLQWiring(t *testing.T) {
	cfg := ConsumerConfig{
		Brokers:  []string{"localhost:9092"},
		GroupID:  "stockledger-test",
		Topic:    "sales.purchase.received",
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	plain := NewConsumer(cfg, nil, testLogger())
	defer plain.Close()
	if plain.dlq != nil {
		t.Error("consumer without EnableDLQ should have no DLQ producer")
	}

	cfg.EnableDLQ = true
	withDLQ := NewConsumer(cfg, nil, testLogger())
	defer withDLQ.Close()
	if withDLQ.dlq == nil {
		t.Error("consumer with EnableDLQ should have a DLQ producer")
	}
}
