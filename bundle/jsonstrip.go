package bundle

import (
	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonStripblanks parses data as JSON and re-emits it in compact canonical
// form with a trailing newline.
func jsonStripblanks(data []byte) ([]byte, error) {
	var v any
	if err := jsonAPI.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	out, err := jsonAPI.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
