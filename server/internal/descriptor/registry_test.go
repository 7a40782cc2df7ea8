package descriptor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertcore/alertcore/pkg/types"
)

func testDescriptor(alertType string) types.Descriptor {
	return types.NewDescriptor(alertType, "application/json", "description", true,
		map[types.State]string{
			types.StateUnhandled: "application/json",
			types.StateHandled:   "application/json",
		})
}

func TestAdd_New(t *testing.T) {
	r := New()
	require.True(t, r.Add(testDescriptor("urn:alert:test")))

	all := r.All()
	require.Len(t, all, 1)
	d := all[0]
	assert.Equal(t, "urn:alert:test", d.AlertType())
	assert.Equal(t, "application/json", d.ContentType())
	assert.Equal(t, "description", d.Description())
	assert.True(t, d.Respondable())
}

func TestAdd_DuplicateTypeIsRejected(t *testing.T) {
	r := New()
	require.True(t, r.Add(testDescriptor("urn:alert:test")))

	other := types.NewDescriptor("urn:alert:test", "text/plain", "other", false, nil)
	assert.False(t, r.Add(other))

	d, ok := r.Get("urn:alert:test")
	require.True(t, ok)
	assert.Equal(t, "application/json", d.ContentType(), "first registration must win")
	assert.Equal(t, 1, r.Len())
}

func TestGet_Unknown(t *testing.T) {
	r := New()
	_, ok := r.Get("urn:alert:none")
	assert.False(t, ok)
	assert.Empty(t, r.All())
}

func TestAdd_Concurrent(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Add(testDescriptor("urn:alert:race")) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, r.Len())
}
