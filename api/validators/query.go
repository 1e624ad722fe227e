package validators

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
)

// ParseLimit reads ?limit. An absent value yields defaultLimit; anything
// outside 1..maxLimit is rejected.
func ParseLimit(r *http.Request, defaultLimit, maxLimit int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("limit must be an integer between 1 and %d", maxLimit)).
			WithDetails(map[string]any{"limit": raw})
	}
	return limit, nil
}
