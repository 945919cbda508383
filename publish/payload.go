package publish

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

func init() {
	registrations := []*component.PayloadRegistration{
		{
			Domain:      "semsum",
			Category:    "pattern",
			Version:     "v1",
			Description: "Summary pattern node payload for graph ingestion",
			Factory:     func() any { return &PatternPayload{} },
		},
		{
			Domain:      "semsum",
			Category:    "document",
			Version:     "v1",
			Description: "Serialized summary graph document",
			Factory:     func() any { return &DocumentPayload{} },
		},
	}
	for _, reg := range registrations {
		if err := component.RegisterPayload(reg); err != nil {
			panic("failed to register " + reg.Category + " payload: " + err.Error())
		}
	}
}

// PatternType is the message type for summary pattern payloads.
var PatternType = message.Type{Domain: "semsum", Category: "pattern", Version: "v1"}

// DocumentType is the message type for serialized summary documents.
var DocumentType = message.Type{Domain: "semsum", Category: "document", Version: "v1"}

// PatternPayload implements message.Payload and graph.Graphable for one
// summary pattern node.
type PatternPayload struct {
	ID         string           `json:"id"`
	TripleData []message.Triple `json:"triples"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (p *PatternPayload) EntityID() string          { return p.ID }
func (p *PatternPayload) Triples() []message.Triple { return p.TripleData }
func (p *PatternPayload) Schema() message.Type      { return PatternType }

func (p *PatternPayload) Validate() error {
	if p.ID == "" {
		return errors.New("entity ID is required")
	}
	if len(p.TripleData) == 0 {
		return errors.New("at least one triple is required")
	}
	return nil
}

func (p *PatternPayload) MarshalJSON() ([]byte, error) {
	type Alias PatternPayload
	return json.Marshal((*Alias)(p))
}

func (p *PatternPayload) UnmarshalJSON(data []byte) error {
	type Alias PatternPayload
	return json.Unmarshal(data, (*Alias)(p))
}

// DocumentPayload carries a whole serialized summary graph.
type DocumentPayload struct {
	RunID     string    `json:"run_id"`
	Format    string    `json:"format"`
	MIMEType  string    `json:"mime_type,omitempty"`
	Patterns  int       `json:"patterns"`
	Document  string    `json:"document"`
	CreatedAt time.Time `json:"created_at"`
}

// Schema returns the message type.
func (p *DocumentPayload) Schema() message.Type { return DocumentType }

// Validate ensures the payload has required fields.
func (p *DocumentPayload) Validate() error {
	if p.RunID == "" {
		return errors.New("run ID is required")
	}
	if p.Format == "" {
		return errors.New("format is required")
	}
	return nil
}

func (p *DocumentPayload) MarshalJSON() ([]byte, error) {
	type Alias DocumentPayload
	return json.Marshal((*Alias)(p))
}

func (p *DocumentPayload) UnmarshalJSON(data []byte) error {
	type Alias DocumentPayload
	return json.Unmarshal(data, (*Alias)(p))
}
