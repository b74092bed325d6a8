package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, name)
	}
	return id, nil
}

// caller returns the authenticated user; routes using it sit behind RequireUser.
func caller(r *http.Request) (int64, bool) {
	id, _ := utils.GetUserIDFromContext(r.Context())
	return id, utils.IsAdmin(r.Context())
}
