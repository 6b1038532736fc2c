package model

import (
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

// DefaultTable is used when the caller omits a table name.
const DefaultTable = "default"

// Namespace identifies one tenant's table. Different tenants never share
// a physical namespace even when their table names collide.
type Namespace struct {
	Tenant string
	Table  string
}

// NewNamespace builds a validated namespace. The table name defaults to
// DefaultTable when empty. Authentication of the tenant happens upstream;
// here the identifiers only need to be safe as storage keys.
func NewNamespace(tenant, table string) (Namespace, error) {
	if tenant == "" {
		return Namespace{}, goerr.Wrap(ErrValidation, "tenant is required")
	}
	if table == "" {
		table = DefaultTable
	}

	for _, name := range []string{tenant, table} {
		if !validIdentifier(name) {
			return Namespace{}, goerr.Wrap(ErrValidation, "invalid namespace identifier", goerr.V("identifier", name))
		}
	}

	return Namespace{Tenant: tenant, Table: table}, nil
}

// Collection returns the physical collection key for this namespace.
// Underscores are rejected by validIdentifier, so the "__" separator is
// unambiguous and two namespaces can never map to the same key.
func (n Namespace) Collection() string {
	return fmt.Sprintf("%s__%s", n.Tenant, n.Table)
}

func (n Namespace) String() string {
	return n.Tenant + "/" + n.Table
}

func validIdentifier(s string) bool {
	if len(s) == 0 || len(s) > 128 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '.':
		default:
			return false
		}
	}
	return true
}
