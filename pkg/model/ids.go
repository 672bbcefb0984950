package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexibleID is a user id sent either as a JSON number or a numeric string.
// Null, "", and 0 count as absent.
type FlexibleID struct {
	Value   int64
	Present bool
	Valid   bool
}

func NewID(v int64) FlexibleID {
	return FlexibleID{Value: v, Present: v != 0, Valid: v > 0}
}

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	*f = FlexibleID{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			// booleans, objects and arrays are present but unusable
			f.Present = true
			return nil
		}
		raw = n.String()
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	f.Present = true

	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		f.Value = v
	} else if fv, err := strconv.ParseFloat(raw, 64); err == nil && fv == math.Trunc(fv) && math.Abs(fv) < math.MaxInt64 {
		f.Value = int64(fv)
	} else {
		return nil
	}

	if f.Value == 0 {
		f.Present = false
		return nil
	}
	f.Valid = f.Value > 0
	return nil
}

func (f FlexibleID) MarshalJSON() ([]byte, error) {
	if !f.Present {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(f.Value, 10)), nil
}
