package querylang

import (
	"fmt"

	"github.com/litepg/litepg-core/internal/domain"
)

func parseError(format string, args ...interface{}) error {
	return domain.NewValidationError(domain.CodeParseError, fmt.Sprintf(format, args...))
}
