package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Str is an optional string field. Set distinguishes an empty value from an
// absent one; heuristics treat unset fields as extraction opportunities.
type Str struct {
	Value string
	Set   bool
}

// S returns a set Str.
func S(v string) Str { return Str{Value: v, Set: true} }

// Num is an optional numeric field. Malformed inputs decode as unset rather
// than failing, per the pipeline's "malformed means missing" policy.
type Num struct {
	Value float64
	Set   bool
}

// N returns a set Num.
func N(v float64) Num { return Num{Value: v, Set: true} }

func (s Str) MarshalJSON() ([]byte, error) {
	if !s.Set {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s *Str) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = Str{}
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		// Non-string scalar (number, bool): keep its textual form.
		*s = Str{Value: strings.Trim(string(data), `"`), Set: true}
		return nil
	}
	*s = Str{Value: v, Set: v != ""}
	return nil
}

func (n Num) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *Num) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*n = Num{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Num{Value: f, Set: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*n = Num{}
		return nil
	}
	*n = ParseNum(s)
	return nil
}

// ParseNum parses a numeric string tolerant of currency symbols, thousands
// separators, and German decimal commas ("1.234,56"). Unparsable input
// yields an unset Num, never an error.
func ParseNum(s string) Num {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "€$£ \t")
	s = strings.TrimSpace(s)
	if s == "" {
		return Num{}
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma < 0:
	case lastDot > lastComma:
		// Dot decimal, commas group thousands: "1,234.56".
		s = strings.ReplaceAll(s, ",", "")
	case lastDot < 0 && (strings.Count(s, ",") > 1 || len(s)-lastComma-1 == 3):
		// Thousands-grouped integer: "1,000", "1,234,567".
		s = strings.ReplaceAll(s, ",", "")
	default:
		// German format: comma is the decimal separator, dot groups thousands.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Num{}
	}
	return Num{Value: f, Set: true}
}
