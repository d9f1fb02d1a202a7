package vin

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDecodeYear(t *testing.T) {
	testCases := []struct {
		vin    string
		year   string
		exists bool
	}{
		{vin: "JHMZE13Y0YS000001", year: "2000", exists: true},
		{vin: "JHMZE14741S000001", year: "2001", exists: true},
		{vin: "JHMZE14742T000556", year: "2002", exists: true},
		{vin: "JHMZE14743T000001", year: "2003", exists: true},
		{vin: "JHMZE14744T000001", year: "2004", exists: true},
		{vin: "JHMZE14745T000001", year: "2005", exists: true},
		{vin: "JHMZE14746T000001", year: "2006", exists: true},
		{vin: "JHMZE1474XT000001", year: "1999", exists: true},
		{vin: "JHMZE1474", exists: false},
		{vin: "", exists: false},
		{vin: "JHMZE1474OT000001", exists: false},
		{vin: "JHMZE1474ZT000001", exists: false},
	}

	for _, tc := range testCases {
		year, ok := DecodeYear(tc.vin)
		require.Equal(t, tc.exists, ok, tc.vin)
		require.Equal(t, tc.year, year, tc.vin)
	}
}

func TestDecoderRange(t *testing.T) {
	d := Decoder{Min: 2010, Max: 2020}
	year, ok := d.DecodeYear("1HGCM8263AA000001")
	require.True(t, ok)
	require.Equal(t, "2010", year)

	// outside the range the closest cycle wins
	year, ok = DefaultDecoder.DecodeYear("1HGCM82637A000001")
	require.True(t, ok)
	require.Equal(t, "2007", year)
}

func TestIsValid(t *testing.T) {
	valid := []string{
		"JHMZE14742T000556",
		"1HGCM82633A004352",
		"jhmze14742t000556",
		"ABCDEFGHJKLMNPRST",
	}
	for _, v := range valid {
		require.True(t, IsValid(v), v)
	}

	invalid := []string{
		"JHMZE14742T00055",
		"JHMZE14742T0005566",
		"JHMZE1474IT000556",
		"JHMZE1474OT000556",
		"JHMZE1474QT000556",
		"JHMZE14742T-00556",
		"",
	}
	for _, v := range invalid {
		require.False(t, IsValid(v), v)
	}
}

func TestValidate(t *testing.T) {
	require.Equal(t, TierConfirmed, Validate("JHMZE14742T000556", "JHMZE"))
	require.Equal(t, TierPlausible, Validate("1HGCM82633A004352", "JHMZE"))
	require.Equal(t, TierPlausible, Validate("JHMZE14742T000556"))
	require.Equal(t, TierInvalid, Validate("JHMZE14742T00O556", "JHMZE"))
	require.Equal(t, "confirmed", TierConfirmed.String())
}

func TestFindAll(t *testing.T) {
	html := `<td>JHMZE14742T000556</td><td>1HGCM82633A004352</td><td>JHMZE14742T000556</td><td>JHMZE13Y0YS000001</td>`

	diff := cmp.Diff(
		[]string{"JHMZE14742T000556", "1HGCM82633A004352", "JHMZE13Y0YS000001"},
		FindAll(html, ""),
	)
	require.Empty(t, diff)

	diff = cmp.Diff(
		[]string{"JHMZE14742T000556", "JHMZE13Y0YS000001"},
		FindAll(html, "JHMZE"),
	)
	require.Empty(t, diff)

	require.Empty(t, FindAll("no vins here", ""))
}
