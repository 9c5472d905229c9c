package events_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/ghuser/circulation/services/circulation/domain/events"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func TestLoanEvent_JSONRoundTrip(t *testing.T) {
	original := events.LoanEvent{
		EventID:    uuid.MustParse("550e8400-e29b-41d4-a716-446655440001"),
		Version:    events.Version,
		LoanID:     uuid.MustParse("550e8400-e29b-41d4-a716-446655440002"),
		ItemID:     uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		BorrowerID: uuid.MustParse("660e8400-e29b-41d4-a716-446655440000"),
		ItemStatus: "BORROWED",
		OccurredAt: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded events.LoanEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.LoanID != original.LoanID || decoded.ItemID != original.ItemID || decoded.BorrowerID != original.BorrowerID {
		t.Errorf("ids differ: got %+v, want %+v", decoded, original)
	}
	if decoded.ItemStatus != original.ItemStatus {
		t.Errorf("ItemStatus: got %q, want %q", decoded.ItemStatus, original.ItemStatus)
	}
	if !decoded.OccurredAt.Equal(original.OccurredAt) {
		t.Errorf("OccurredAt: got %v, want %v", decoded.OccurredAt, original.OccurredAt)
	}
}

func TestItemRegisteredEvent_JSONFieldNames(t *testing.T) {
	evt := events.ItemRegisteredEvent{
		EventID:    uuid.New(),
		Version:    events.Version,
		ItemID:     uuid.New(),
		CatalogID:  "ISBN-1",
		Title:      "Clean Code",
		Author:     "R. Martin",
		OccurredAt: time.Now().UTC(),
	}

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal to map failed: %v", err)
	}

	for _, field := range []string{"event_id", "version", "item_id", "catalog_id", "title", "author", "occurred_at"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("expected JSON field %q not found in: %s", field, data)
		}
	}
}

func TestTopics_Distinct(t *testing.T) {
	seen := map[string]bool{}
	for _, topic := range []string{
		events.TopicItemRegistered,
		events.TopicBorrowerRegistered,
		events.TopicLoanBorrowed,
		events.TopicLoanReturned,
	} {
		if topic == "" {
			t.Fatal("topic must not be empty")
		}
		if seen[topic] {
			t.Fatalf("duplicate topic %q", topic)
		}
		seen[topic] = true
	}
}
