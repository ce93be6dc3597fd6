// AngelaMos | 2026
// entity.go

package generation

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrHistoryNotFound = errors.New("history entry not found")
	ErrEmptyInputs     = errors.New("no input values supplied")
	ErrInvalidVariant  = errors.New("variant out of range")
)

// InputValue is one submitted value, keyed by the input definition it
// was matched to.
type InputValue struct {
	InputID string `json:"input_id"`
	Name    string `json:"name"`
	Value   string `json:"value"`
}

// InputValues is stored as a JSONB array in declared input order.
type InputValues []InputValue

func (v InputValues) Value() (driver.Value, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v)
}

func (v *InputValues) Scan(src any) error {
	var raw []byte
	switch s := src.(type) {
	case []byte:
		raw = s
	case string:
		raw = []byte(s)
	case nil:
		*v = nil
		return nil
	default:
		return fmt.Errorf("scan input values: unsupported type %T", src)
	}
	return json.Unmarshal(raw, v)
}

// HistoryEntry records one completed generation. It is written once and
// never updated.
type HistoryEntry struct {
	ID               string      `db:"id"`
	UserID           string      `db:"user_id"`
	CategoryID       string      `db:"category_id"`
	ToneID           string      `db:"tone_id"`
	Lang             string      `db:"lang"`
	Variant          int         `db:"variant"`
	InputValues      InputValues `db:"input_values"`
	Content          string      `db:"content"`
	PromptTokens     int         `db:"prompt_tokens"`
	CompletionTokens int         `db:"completion_tokens"`
	IdempotencyKey   *string     `db:"idempotency_key"`
	CreatedAt        time.Time   `db:"created_at"`
}
