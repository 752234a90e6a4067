package sequence

// NumberScan accumulates the numbers observed while walking a document type.
type NumberScan struct {
	Prefix        string   `json:"prefix"`
	Scanned       int      `json:"scanned"`
	Parsed        int      `json:"parsed"`
	Malformed     int      `json:"malformed"`
	ForeignPrefix int      `json:"foreign_prefix"`
	MaxFound      int64    `json:"max_found"`
	Samples       []string `json:"samples,omitempty"`

	sampleSize int
}

// NewNumberScan starts a scan for numbers carrying prefix. At most
// sampleSize rejected numbers are kept for reporting.
func NewNumberScan(prefix string, sampleSize int) *NumberScan {
	return &NumberScan{
		Prefix:     prefix,
		sampleSize: sampleSize,
	}
}

// Observe records a single document number
func (s *NumberScan) Observe(number string) {
	s.Scanned++

	n, ok := Parse(s.Prefix, number)
	if ok {
		s.Parsed++
		if n > s.MaxFound {
			s.MaxFound = n
		}
		return
	}

	if len(number) >= len(s.Prefix) && number[:len(s.Prefix)] == s.Prefix {
		s.Malformed++
	} else {
		s.ForeignPrefix++
	}
	if len(s.Samples) < s.sampleSize {
		s.Samples = append(s.Samples, number)
	}
}

// Skipped is the number of observed values that did not parse
func (s *NumberScan) Skipped() int {
	return s.Malformed + s.ForeignPrefix
}
