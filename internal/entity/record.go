package entity

import "strconv"

// Record is a flat attribute map describing one normalized entity.
// All values are stored as strings regardless of their wire type.
type Record map[string]string

// Int64 returns the attribute parsed as int64, or 0 when absent or malformed.
func (r Record) Int64(key string) int64 {
	v, err := strconv.ParseInt(r[key], 10, 64)
	if err != nil {
		return 0
	}

	return v
}

// Has reports whether the attribute is present.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}

	return out
}
