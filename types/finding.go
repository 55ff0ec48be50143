package types

// Finding reports an address header field that only parsed in tolerant mode.
type Finding struct {
	// Message is the zero-based position of the message in its mailbox.
	Message   int    `json:"message" yaml:"message"`
	MessageID string `json:"message_id,omitempty" yaml:"message_id,omitempty"`
	Field     string `json:"field" yaml:"field"`
	Value     string `json:"value" yaml:"value"`
	// Decoded is Value with its encoded-words decoded, if it had any.
	Decoded string `json:"decoded,omitempty" yaml:"decoded,omitempty"`
	// Canonical is the field value as the parser understood it.
	Canonical string `json:"canonical" yaml:"canonical"`
	Invalid   int    `json:"invalid" yaml:"invalid"`
}
