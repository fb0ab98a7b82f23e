package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewItemMessage encodes an item lifecycle notification for broadcast,
// e.g. action "item.created" with the item as payload.
func NewItemMessage(action string, payload interface{}) []byte {
	data, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		return []byte(`{"action":"error","payload":"encoding failure"}`)
	}
	return data
}

// NewErrorMessage encodes an error notification for a single client.
func NewErrorMessage(text string) []byte {
	data, _ := json.Marshal(Message{Action: "error", Payload: text})
	return data
}
