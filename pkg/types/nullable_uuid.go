package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// NullableUUID decodes a JSON uuid that may be null, and remembers whether the
// key was in the document at all. ID is nil for an explicit null.
type NullableUUID struct {
	Present bool
	ID      *uuid.UUID
}

// UnmarshalJSON implements json.Unmarshaler. It only runs when the key exists.
func (n *NullableUUID) UnmarshalJSON(data []byte) error {
	n.Present = true
	n.ID = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("invalid uuid: %w", err)
	}
	n.ID = &id
	return nil
}
