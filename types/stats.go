package types

// Stats summarizes what a rewrite did to one message.
type Stats struct {
	// Fields is the number of address header fields seen.
	Fields int `json:"fields" yaml:"fields"`
	// Addresses is the number of mailboxes parsed, group markers excluded.
	Addresses int `json:"addresses" yaml:"addresses"`
	// Rewritten is the number of mailboxes changed by a rule.
	Rewritten int `json:"rewritten" yaml:"rewritten"`
	// Preserved is the number of fields left untouched because they did
	// not parse cleanly.
	Preserved int `json:"preserved" yaml:"preserved"`
}

func (s *Stats) Add(o Stats) {
	s.Fields += o.Fields
	s.Addresses += o.Addresses
	s.Rewritten += o.Rewritten
	s.Preserved += o.Preserved
}
