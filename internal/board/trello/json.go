package trello

import (
	"encoding/json"
	"fmt"
)

func decodeJSON(body []byte, out interface{}) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode trello response: %w", err)
	}
	return nil
}
