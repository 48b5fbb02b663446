// Package middleware wraps state stores with cross-cutting persistence
// behaviour, e.g. at-rest encryption of flow state. Flow state is
// user-entered wizard data and routinely carries PII.
package middleware

import "github.com/aretw0/espalier/pkg/ports"

// Middleware allows wrapping a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore
