package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	recorder := NewRecorder()
	scoped := NewScopedAPI("mpweixin", recorder)

	scoped.ReportBroken("client.get-page", "url")
	scoped.ReportCount("tracker.tracked-articles", 3)

	broken := recorder.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "mpweixin: client.get-page", broken[0].Id)
	require.Equal(t, []any{"url"}, broken[0].Params)

	counts := recorder.Reports("count")
	require.Len(t, counts, 1)
	require.Equal(t, int64(3), counts[0].Count)

	require.Panics(t, func() {
		NewScopedAPI("", recorder)
	})
}
