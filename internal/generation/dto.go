// AngelaMos | 2026
// dto.go

package generation

import (
	"time"
)

const idempotencyHeader = "Idempotency-Key"

type GenerateRequest struct {
	Category    string            `json:"category"    validate:"required,uuid"`
	Tone        string            `json:"tone"        validate:"required,uuid"`
	Inputs      map[string]string `json:"inputs"      validate:"required,min=1,max=32,dive,keys,max=64,endkeys,max=4000"`
	Variant     int               `json:"variant"     validate:"required,min=1"`
	Temperature *float64          `json:"temperature" validate:"omitempty,min=0,max=2"`
	Lang        string            `json:"lang"        validate:"required,bcp47_language_tag"`
}

type ListHistoryParams struct {
	Page     int `validate:"min=1"`
	PageSize int `validate:"min=1,max=100"`
}

type HistoryResponse struct {
	ID               string       `json:"id"`
	User             string       `json:"user"`
	Category         string       `json:"category"`
	Tone             string       `json:"tone"`
	Lang             string       `json:"lang"`
	Variant          int          `json:"variant"`
	InputValues      []InputValue `json:"input_values"`
	Content          string       `json:"content"`
	PromptTokens     int          `json:"prompt_tokens"`
	CompletionTokens int          `json:"completion_tokens"`
	CreatedAt        time.Time    `json:"created_at"`
}

func ToHistoryResponse(e *HistoryEntry) HistoryResponse {
	values := e.InputValues
	if values == nil {
		values = InputValues{}
	}
	return HistoryResponse{
		ID:               e.ID,
		User:             e.UserID,
		Category:         e.CategoryID,
		Tone:             e.ToneID,
		Lang:             e.Lang,
		Variant:          e.Variant,
		InputValues:      values,
		Content:          e.Content,
		PromptTokens:     e.PromptTokens,
		CompletionTokens: e.CompletionTokens,
		CreatedAt:        e.CreatedAt,
	}
}

func ToHistoryResponseList(entries []HistoryEntry) []HistoryResponse {
	out := make([]HistoryResponse, len(entries))
	for i := range entries {
		out[i] = ToHistoryResponse(&entries[i])
	}
	return out
}
