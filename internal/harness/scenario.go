package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/busscope/internal/message"
	"github.com/roach88/busscope/internal/sequence"
	"github.com/roach88/busscope/internal/testutil"
)

// DefaultConversationID is used when a scenario does not name one.
const DefaultConversationID = "conv-1"

// Scenario defines one conversation and the model expected from it.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// ConversationID is stamped on every message. Defaults to "conv-1".
	ConversationID string `yaml:"conversation_id,omitempty"`

	// Messages are the audited messages in the order the service returned
	// them.
	Messages []MessageSpec `yaml:"messages"`

	// Expect describes the reconstructed model.
	Expect Expect `yaml:"expect"`
}

// MessageSpec is the compact form of one audited message.
type MessageSpec struct {
	ID        string `yaml:"id"`
	To        string `yaml:"to"`             // receiving endpoint, "name@host"
	From      string `yaml:"from,omitempty"` // sending endpoint; empty for none
	RelatedTo string `yaml:"related_to,omitempty"`
	Type      string `yaml:"type,omitempty"`   // full type name; defaults to Test.Messages.<id>
	Intent    string `yaml:"intent,omitempty"` // send, publish, reply, ...
	Timeout   bool   `yaml:"timeout,omitempty"`
	Version   string `yaml:"version,omitempty"`

	// Offsets from the scenario epoch. Zero leaves the time unset.
	Sent           time.Duration `yaml:"sent,omitempty"`
	Processed      time.Duration `yaml:"processed,omitempty"`
	ProcessingTime time.Duration `yaml:"processing_time,omitempty"`

	Headers map[string]string `yaml:"headers,omitempty"`
}

// Expect lists expectations on the model. Unset fields are not checked.
type Expect struct {
	// Handlers is the exact handler order as "id@endpoint" keys.
	Handlers []string `yaml:"handlers,omitempty"`

	// Arrows maps a message id to the expected arrow type of every arrow
	// carrying it.
	Arrows map[string]string `yaml:"arrows,omitempty"`

	// Endpoints is the exact endpoint order.
	Endpoints []string `yaml:"endpoints,omitempty"`

	// Routes are "from -> to" handler key pairs that must be present.
	// Use "(external)" for an arrow without a sending handler.
	Routes []string `yaml:"routes,omitempty"`

	// Orphans is the expected number of orphan roots.
	Orphans *int `yaml:"orphans,omitempty"`

	// Error is the expected structural error code. When set the
	// reconstruction must fail.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if scenario.ConversationID == "" {
		scenario.ConversationID = DefaultConversationID
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Messages) == 0 {
		return fmt.Errorf("messages list is required and must be non-empty")
	}

	for i, m := range s.Messages {
		if m.ID == "" {
			return fmt.Errorf("messages[%d]: id is required", i)
		}
		if m.To == "" {
			return fmt.Errorf("messages[%d]: to is required", i)
		}
		if m.Sent < 0 || m.Processed < 0 {
			return fmt.Errorf("messages[%d]: time offsets must not be negative", i)
		}
	}

	for id, typ := range s.Expect.Arrows {
		if _, err := sequence.ParseArrowType(typ); err != nil {
			return fmt.Errorf("expect.arrows[%s]: %w", id, err)
		}
	}
	if s.Expect.Orphans != nil && *s.Expect.Orphans < 0 {
		return fmt.Errorf("expect.orphans must be non-negative")
	}
	if s.Expect.Error != "" && (len(s.Expect.Handlers) > 0 || len(s.Expect.Routes) > 0) {
		return fmt.Errorf("expect.error cannot be combined with model expectations")
	}
	return nil
}

// BuildMessages expands the compact message specs.
func (s *Scenario) BuildMessages() []message.Message {
	conversation := s.ConversationID
	if conversation == "" {
		conversation = DefaultConversationID
	}

	out := make([]message.Message, len(s.Messages))
	for i, rec := range s.Messages {
		b := testutil.Msg(rec.ID, rec.To).Conversation(conversation)
		if rec.From != "" {
			b.From(rec.From)
		}
		if rec.RelatedTo != "" {
			b.RelatedTo(rec.RelatedTo)
		}
		if rec.Type != "" {
			b.Type(rec.Type)
		}
		if rec.Intent != "" {
			b.Intent(message.ParseIntent(rec.Intent))
		}
		if rec.Timeout {
			b.Timeout()
		}
		if rec.Version != "" {
			b.Version(rec.Version)
		}
		if rec.Sent > 0 {
			b.Sent(testutil.At(rec.Sent))
		}
		if rec.Processed > 0 {
			b.Processed(testutil.At(rec.Processed), rec.ProcessingTime)
		}

		keys := make([]string, 0, len(rec.Headers))
		for k := range rec.Headers {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			b.Header(k, rec.Headers[k])
		}

		out[i] = b.Build()
	}
	return out
}
