package audit

import (
	"context"
	"fmt"
)

// Open selects a Store implementation by driver name ("postgres", "sqlite",
// or "none"), the same registry-by-name idea the broker package uses for
// venue adapters.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "postgres":
		return NewPostgresStore(ctx, dsn)
	case "sqlite":
		return NewSQLiteStore(ctx, dsn)
	case "none", "":
		return NoopStore{}, nil
	default:
		return nil, fmt.Errorf("audit: unknown storage driver %q", driver)
	}
}
