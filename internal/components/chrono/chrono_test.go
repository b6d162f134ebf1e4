package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromUnix(t *testing.T) {
	// 2018-03-03 17:35:11 UTC, the create_time of a sample comment
	converted := FromUnix(1520098511)
	require.Equal(t, 2018, converted.Year())
	require.Equal(t, time.March, converted.Month())
	require.Equal(t, 4, converted.Day())
	require.Equal(t, 1, converted.Hour())
}

func TestFixedTime(t *testing.T) {
	at := time.Date(2024, time.May, 1, 23, 0, 0, 0, time.UTC)
	now := FixedTime{At: at}.Now()
	require.True(t, now.Equal(at))
	require.Equal(t, 2, now.Day())
}

func TestValidateSpec(t *testing.T) {
	table := []struct {
		spec  string
		valid bool
	}{
		{spec: "*/30 * * * *", valid: true},
		{spec: "0 9 * * 1-5", valid: true},
		{spec: "@hourly", valid: true},
		{spec: "every thirty minutes", valid: false},
		{spec: "* * *", valid: false},
	}

	for _, row := range table {
		err := ValidateSpec(row.spec)
		if row.valid {
			require.NoError(t, err, row.spec)
			continue
		}
		require.Error(t, err, row.spec)
	}
}
