package netbox

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDryRun_SuppressesWrites(t *testing.T) {
	var writes int
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writes++
		}
		writeJSON(w, http.StatusOK, `{"count": 1, "results": [{"id": 5, "slug": "dc1"}]}`)
	})
	dry := NewDryRun(client, zerolog.Nop())
	ctx := context.Background()

	resp, err := dry.Get(ctx, ResourceSites, map[string]string{"slug": "dc1"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.First().ID)

	created, err := dry.Create(ctx, ResourceDevices, map[string]string{"name": "nas1"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), created.ID)

	patched, err := dry.Patch(ctx, ResourceDevices, 42, map[string]int64{"primary_ip4": 7})
	require.NoError(t, err)
	assert.Equal(t, int64(0), patched.ID)

	assert.Zero(t, writes, "dry run must not send writes")
	intents := dry.Intents()
	require.Len(t, intents, 2)
	assert.Equal(t, "POST", intents[0].Method)
	assert.Equal(t, ResourceDevices, intents[0].Resource)
	assert.Equal(t, "PATCH", intents[1].Method)
	assert.Equal(t, int64(42), intents[1].ID)
}
