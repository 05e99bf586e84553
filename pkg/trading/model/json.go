package model

import (
	"bytes"
	"encoding/json"
)

func (o *Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.ToRepresentation())
}

// UnmarshalJSON decodes numbers as json.Number so prices keep every digit.
func (o *Order) UnmarshalJSON(data []byte) error {
	var r Representation
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		return err
	}
	return o.FromRepresentation(r)
}
