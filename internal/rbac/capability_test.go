package rbac

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEveryVerbMapsToACapability(t *testing.T) {
	seen := map[Capability]Verb{}
	for _, v := range Verbs() {
		c := v.Capability()
		assert.NotZero(t, c, "verb %s has no capability", v)
		assert.NotEqual(t, CapApprove, c, "approve is gated by route, not verb")
		prev, dup := seen[c]
		assert.False(t, dup, "%s and %s share %s", prev, v, c)
		seen[c] = v

		parsed, ok := ParseVerb(v.String())
		assert.True(t, ok)
		assert.Equal(t, v, parsed)
	}
	assert.Len(t, Verbs(), int(verbCount))
}

func TestVerbMapping(t *testing.T) {
	cases := map[string]Capability{
		http.MethodGet:    CapRead,
		http.MethodPost:   CapAdd,
		http.MethodPatch:  CapEdit,
		http.MethodDelete: CapDelete,
	}
	for method, want := range cases {
		v, ok := ParseVerb(method)
		assert.True(t, ok, method)
		assert.Equal(t, want, v.Capability(), method)
	}
	_, ok := ParseVerb(http.MethodPut)
	assert.False(t, ok)
}
