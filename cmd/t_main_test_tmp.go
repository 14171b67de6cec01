package main

import (
	"fmt"
	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
)

func main() {
	data := []byte(`{
  // comments are allowed
  session: { max_monologue_iterations: 7, chat_model: 'm' },
  backend: { kind: 'gemini', api_key: 'k' },
}`)
	var raw map[string]any
	err := json5.Unmarshal(data, &raw)
	fmt.Println(err, raw)
}
