package datastore

import (
	"github.com/jobapply/jobapply/internal/errors"
)

const componentDatastore = "datastore"

// dbError creates a properly categorized database error with context
func dbError(err error, operation string, context ...any) error {
	builder := errors.New(err).
		Component(componentDatastore).
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// Not-found errors share CategoryNotFound; test them with errors.IsNotFound.
// They are built once so lookups that miss do not reach telemetry.
var (
	ErrSettingsNotFound    = errors.NotFound(componentDatastore, "backup settings")
	ErrAccountNotFound     = errors.NotFound(componentDatastore, "remote account")
	ErrTokenNotFound       = errors.NotFound(componentDatastore, "remote token")
	ErrAppNotFound         = errors.NotFound(componentDatastore, "oauth app")
	ErrApplicationNotFound = errors.NotFound(componentDatastore, "job application")
)
