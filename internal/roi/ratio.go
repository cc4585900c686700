package roi

import "encoding/json"

const undefinedLiteral = `"undefined"`

// Ratio is a quotient that is undefined when its denominator was exactly
// zero. It serializes as a JSON number, or the string "undefined", so an
// Inf or NaN never reaches a caller.
type Ratio struct {
	Value     float64
	Undefined bool
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if r.Undefined {
		return []byte(undefinedLiteral), nil
	}
	return json.Marshal(r.Value)
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == undefinedLiteral {
		*r = Ratio{Undefined: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Ratio{Value: v}
	return nil
}
