package authz

import (
	"testing"

	"github.com/merchantry/bulwark/internal/domain"
)

func TestRegistryUnknownKeyIsPublic(t *testing.T) {
	reg := DefaultRegistry()
	if _, ok := reg.Requirement("catalog:browse"); ok {
		t.Fatal("unregistered key carries a requirement")
	}
}

func TestRegistryCopiesInput(t *testing.T) {
	src := map[string]domain.PolicyRequirement{
		"orders:view": {RequireAuth: true},
	}
	reg := NewRegistry(src)
	delete(src, "orders:view")
	if _, ok := reg.Requirement("orders:view"); !ok {
		t.Fatal("mutating the source map after construction changed the registry")
	}
}

func TestDefaultRegistryKeys(t *testing.T) {
	reg := DefaultRegistry()
	for _, key := range []string{
		"cart:checkout",
		"orders:view",
		"account:security",
		"account:sensitive",
		"seller:dashboard",
		"admin:accounts",
	} {
		req, ok := reg.Requirement(key)
		if !ok {
			t.Errorf("%s not registered", key)
			continue
		}
		if !req.RequireAuth {
			t.Errorf("%s does not require authentication", key)
		}
	}
}
