package types

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

type parentBody struct {
	ParentID NullableUUID `json:"parent_id"`
}

func TestNullableUUIDDistinguishesNullFromAbsent(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name    string
		body    string
		present bool
		want    *uuid.UUID
	}{
		{name: "value", body: `{"parent_id":"` + id.String() + `"}`, present: true, want: &id},
		{name: "null", body: `{"parent_id":null}`, present: true},
		{name: "absent", body: `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got parentBody
			if err := json.Unmarshal([]byte(tc.body), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.ParentID.Present != tc.present {
				t.Fatalf("present = %v, want %v", got.ParentID.Present, tc.present)
			}
			switch {
			case tc.want == nil && got.ParentID.ID != nil:
				t.Fatalf("expected nil id, got %s", got.ParentID.ID)
			case tc.want != nil && (got.ParentID.ID == nil || *got.ParentID.ID != *tc.want):
				t.Fatalf("expected %s, got %v", tc.want, got.ParentID.ID)
			}
		})
	}
}

func TestNullableUUIDRejectsGarbage(t *testing.T) {
	var got parentBody
	if err := json.Unmarshal([]byte(`{"parent_id":"not-a-uuid"}`), &got); err == nil {
		t.Fatal("expected an error for a malformed uuid")
	}
}
