package httpx

import (
	"net/http"
	"strings"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

// Identity is resolved by the gateway in front of this service.
const (
	HeaderActorID    = "X-Actor-Id"
	HeaderActorRoles = "X-Actor-Roles"
)

func actorFrom(r *http.Request) (ledger.Actor, bool) {
	id := strings.TrimSpace(r.Header.Get(HeaderActorID))
	if id == "" {
		return ledger.Actor{}, false
	}
	var roles []string
	for _, role := range strings.Split(r.Header.Get(HeaderActorRoles), ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return ledger.Actor{ID: id, Roles: roles}, true
}

// requireActor writes a 401 and returns false when the request carries no identity.
func requireActor(w http.ResponseWriter, r *http.Request) (ledger.Actor, bool) {
	actor, ok := actorFrom(r)
	if !ok {
		WriteError(r.Context(), w, NewError("unauthenticated", "actor identity required", http.StatusUnauthorized))
	}
	return actor, ok
}
