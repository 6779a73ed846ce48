package api

import (
	"encoding/json"
	"net/http"
)

// maxRequestBytes bounds the size of a decoded request body
const maxRequestBytes = 1 << 20

// decodeJSON decodes the request body into v, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
