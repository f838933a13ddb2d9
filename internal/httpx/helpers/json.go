// Package helpers agrupa utilidades compartidas por los controllers.
package helpers

import (
	"encoding/json"
	"net/http"

	httperrors "github.com/dropDatabas3/collabsql/internal/httpx/errors"
)

const maxBodySize = 64 << 10 // 64KB

// ReadJSON decodifica el body JSON del request en dst, con límite de
// tamaño. Si falla, responde el error y devuelve false; el caller solo
// tiene que cortar.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return false
	}
	return true
}

// WriteJSON serializa v con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
