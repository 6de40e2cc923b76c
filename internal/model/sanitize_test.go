package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeConsumerIDIdempotent(t *testing.T) {
	inputs := []string{
		"  Kitchen_Printer-01  ",
		"ALLCAPS!!!",
		"",
		"already.sane-id_1:2",
	}
	for _, in := range inputs {
		once := SanitizeConsumerID(in)
		twice := SanitizeConsumerID(once)
		require.Equal(t, once, twice, "sanitize not idempotent for %q", in)
		require.NotEmpty(t, once)
		require.LessOrEqual(t, len(once), MaxConsumerIDLen)
	}
}

func TestSanitizeConsumerIDStripsDisallowed(t *testing.T) {
	require.Equal(t, "kitchen-printer01", SanitizeConsumerID("Kitchen Printer#01"))
}

func TestSanitizePollMsClamps(t *testing.T) {
	require.Equal(t, DefaultPollMs, SanitizePollMs(0))
	require.Equal(t, DefaultPollMs, SanitizePollMs(999999))
	require.Equal(t, 3000, SanitizePollMs(3000))
}

func TestSanitizeClaimLimitClamps(t *testing.T) {
	require.Equal(t, DefaultClaimLimit, SanitizeClaimLimit(0))
	require.Equal(t, DefaultClaimLimit, SanitizeClaimLimit(21))
	require.Equal(t, 10, SanitizeClaimLimit(10))
}

func TestSanitizePrinterPort(t *testing.T) {
	require.Equal(t, DefaultPrinterPort, SanitizePrinterPort(0))
	require.Equal(t, DefaultPrinterPort, SanitizePrinterPort(-1))
	require.Equal(t, DefaultPrinterPort, SanitizePrinterPort(70000))
	require.Equal(t, 8008, SanitizePrinterPort(8008))
}

func TestSameSessionEquivalence(t *testing.T) {
	exp := int64(100)
	a := SessionSnapshot{AccessToken: "a", RefreshToken: "r", ExpiresAt: &exp}
	b := SessionSnapshot{AccessToken: "a", RefreshToken: "r", ExpiresAt: &exp}
	c := SessionSnapshot{AccessToken: "a", RefreshToken: "other"}

	require.True(t, SameSession(a, a), "reflexive")
	require.True(t, SameSession(a, b))
	require.True(t, SameSession(b, a), "symmetric")
	require.False(t, SameSession(a, c))
}

func TestConfigMergeSanitizes(t *testing.T) {
	base := DefaultConfig()
	name := "  New Name  "
	poll := 500
	merged := base.Merge(ConfigPatch{DeviceName: &name, PollMs: &poll})
	require.Equal(t, "New Name", merged.DeviceName)
	require.Equal(t, DefaultPollMs, merged.PollMs, "out-of-range poll falls back to default")
}

func TestBuildLiveRoutesFirstEnabledWins(t *testing.T) {
	printers := []LivePrinter{
		{ID: "p1", Enabled: true, Departments: []string{"Cucina"}},
		{ID: "p2", Enabled: true, Departments: []string{"cucina"}},
		{ID: "p3", Enabled: false, Departments: []string{"bar"}},
	}
	routes := BuildLiveRoutes(printers, "p1")
	require.Equal(t, "p1", routes.ByDepartment["cucina"].ID)
	_, ok := routes.ByDepartment["bar"]
	require.False(t, ok, "disabled printer must not be indexed by department")
}

func TestParseLiveRoutesReadsSettingsPrintingBlock(t *testing.T) {
	raw := []byte(`{"printing":{"defaultPrinterId":"p9","printers":[
		{"id":"p9","name":"Default","host":"10.0.0.9","port":9100,"enabled":true,"departments":["bar"]}
	]}}`)
	routes := ParseLiveRoutes(raw)
	require.Equal(t, "p9", routes.DefaultPrinterID)
	require.Equal(t, "10.0.0.9", routes.ByID["p9"].Host)
}

func TestParseLiveRoutesToleratesMissingOrBadSettings(t *testing.T) {
	require.Equal(t, LiveRoutes{ByID: map[string]LivePrinter{}, ByDepartment: map[string]LivePrinter{}}, ParseLiveRoutes(nil))
	routes := ParseLiveRoutes([]byte(`not json`))
	require.Empty(t, routes.ByID)
}
