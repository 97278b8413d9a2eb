// internal/membership/service.go
package membership

import (
	"context"

	"libradesk/internal/library"
)

// Service manages the member directory. Members are addressed by name.
type Service interface {
	List(ctx context.Context) ([]library.Member, error)
	Get(ctx context.Context, name string) (library.Member, error)
	Add(ctx context.Context, member library.Member) error
	// Update merges patch into the member stored under name. The bool result
	// is true when confirm turned a missing member into a new one.
	Update(ctx context.Context, name string, patch MemberPatch, confirm bool) (bool, error)
	Delete(ctx context.Context, name string) error
}
