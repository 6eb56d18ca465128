package catalog

import (
	"context"

	"homecook-api/models"
)

// Delivery is one push from a realtime source: either a full snapshot of
// the collection or an error. Seq is the source's ordering token; zero
// means the source makes no ordering promise.
type Delivery struct {
	Seq   uint64
	Spots []models.CookSpot
	Err   error
}

// Registration detaches a live subscription. Remove must be idempotent.
type Registration interface {
	Remove()
}

// Source is a realtime collection of cook spots. Subscribe may call
// deliver from any goroutine, including before it returns.
type Source interface {
	Subscribe(ctx context.Context, collection string, deliver func(Delivery)) (Registration, error)
	Fetch(ctx context.Context, collection string) ([]models.CookSpot, error)
}

// RegistrationFunc adapts a plain function to Registration
type RegistrationFunc func()

func (f RegistrationFunc) Remove() { f() }
