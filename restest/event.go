package restest

import "encoding/json"

// Event represents an event sent by a resource.
type Event struct {
	// Name of the event.
	Name string

	// Index position where the value is added or removed from the
	// collection.
	//
	// Only valid for "add" and "remove" events.
	Idx int

	// Value being added to the collection.
	//
	// Only valid for "add" events.
	Value interface{}

	// Changed property values for the model emitting the event.
	//
	// Only valid for "change" events, and should marshal into a json
	// object with changed key/value properties.
	Changed interface{}

	// Data of the created resource.
	//
	// Only valid for "create" events.
	Data interface{}

	// Payload of a custom event.
	Payload interface{}
}

// MarshalJSON marshals the event payload into json.
func (ev Event) MarshalJSON() ([]byte, error) {
	switch ev.Name {
	case "change":
		return json.Marshal(struct {
			Values interface{} `json:"values"`
		}{ev.Changed})
	case "add":
		return json.Marshal(struct {
			Value interface{} `json:"value"`
			Idx   int         `json:"idx"`
		}{ev.Value, ev.Idx})
	case "remove":
		return json.Marshal(struct {
			Idx int `json:"idx"`
		}{ev.Idx})
	case "create":
		return json.Marshal(struct {
			Data interface{} `json:"data"`
		}{ev.Data})
	case "delete":
		return []byte("{}"), nil
	case "reaccess":
		return []byte("null"), nil
	default:
		return json.Marshal(ev.Payload)
	}
}
