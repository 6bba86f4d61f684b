package sink

// Record is one decoded log entry: a mapping from field name to the
// JSON-decoded value. No schema is enforced at decode time; by
// convention records carry a "level" field (string level name) and a
// "message" field, which the query helpers rely on.
type Record map[string]any

// Level returns the severity of the record's "level" field. ok is
// false when the field is missing, not a string, or not a recognized
// level name; such records rank below every threshold.
func (r Record) Level() (Level, bool) {
	name, ok := r["level"].(string)
	if !ok {
		return 0, false
	}
	return ParseLevel(name)
}

// Message returns the record's "message" field, or the empty string if
// it is missing or not a string.
func (r Record) Message() string {
	msg, _ := r["message"].(string)
	return msg
}
