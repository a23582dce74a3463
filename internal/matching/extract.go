package matching

import (
	"fmt"
	"regexp"
	"strings"
)

var timestampPattern = regexp.MustCompile(`\d{6}_\d{4}`)

// StemInfo is the participant triple extracted from a transcript file stem.
// A zero value means the stem carried no recognizable participant marker.
type StemInfo struct {
	ParticipantType string
	Code            string
	Timestamp       string
}

// Extractable reports whether a participant type and code were found.
func (s StemInfo) Extractable() bool {
	return s.ParticipantType != "" && s.Code != ""
}

// SearchTerms builds the substring search terms derived from the stem:
// TYPE_code and, when a timestamp was present, TYPE_code_timestamp.
func (s StemInfo) SearchTerms() []string {
	if !s.Extractable() {
		return nil
	}
	participantCode := s.ParticipantType + "_" + s.Code
	terms := []string{participantCode}
	if s.Timestamp != "" {
		terms = append(terms, participantCode+"_"+s.Timestamp)
	}
	return terms
}

// Extractor pulls participant triples out of file stems using a configurable
// set of participant-type tokens.
type Extractor struct {
	basicPattern *regexp.Regexp
}

// NewExtractor compiles the extraction pattern for the given participant
// types. Matching is case-insensitive; the type token must be followed by an
// underscore or space and a 4-digit code.
func NewExtractor(participantTypes []string) (*Extractor, error) {
	if len(participantTypes) == 0 {
		return nil, fmt.Errorf("at least one participant type is required")
	}
	quoted := make([]string, 0, len(participantTypes))
	for _, pt := range participantTypes {
		quoted = append(quoted, regexp.QuoteMeta(pt))
	}
	pattern, err := regexp.Compile(`(?i)(` + strings.Join(quoted, "|") + `)[_ ](\d{4})`)
	if err != nil {
		return nil, fmt.Errorf("compile participant pattern: %w", err)
	}
	return &Extractor{basicPattern: pattern}, nil
}

// Extract returns the participant triple found in stem. The participant type
// is normalized to upper case. The timestamp is searched independently
// anywhere in the stem and may be absent.
func (e *Extractor) Extract(stem string) StemInfo {
	basic := e.basicPattern.FindStringSubmatch(stem)
	if basic == nil {
		return StemInfo{}
	}
	info := StemInfo{
		ParticipantType: strings.ToUpper(basic[1]),
		Code:            basic[2],
	}
	if ts := timestampPattern.FindString(stem); ts != "" {
		info.Timestamp = ts
	}
	return info
}
