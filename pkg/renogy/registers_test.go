package renogy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameOfIsTotalAndInjective(t *testing.T) {
	seen := make(map[string]uint16)
	for _, d := range Registers() {
		name, ok := NameOf(d.Address)
		require.True(t, ok, "address 0x%04X", d.Address)
		assert.Equal(t, d.Name, name)
		if prev, dup := seen[name]; dup {
			t.Fatalf("name %s shared by 0x%04X and 0x%04X", name, prev, d.Address)
		}
		seen[name] = d.Address
	}
	assert.Len(t, seen, len(catalog))
}

func TestNameOfUnknownAddress(t *testing.T) {
	name, ok := NameOf(0xFFFF)
	assert.False(t, ok)
	assert.Equal(t, UnknownRegister, name)

	_, ok = Lookup(0x0000)
	assert.False(t, ok)
}

func TestCurrentSet(t *testing.T) {
	set := CurrentSet()
	require.Len(t, set, 11)

	names := make([]string, 0, len(set))
	for _, d := range set {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{
		"BATT_CAPACITY", "BATT_CAPACITY_AH", "BATT_VOLTAGE", "CHARGE_CURRENT", "TEMPERATURE",
		"LOAD_VOLTAGE", "LOAD_CURRENT", "LOAD_POWER", "PANEL_VOLTAGE", "PANEL_CURRENT", "CHARGE_POWER",
	}, names)
	assert.Equal(t, set, CurrentSet())
}

func TestDailySet(t *testing.T) {
	set := DailySet()
	require.Len(t, set, 8)
	assert.Equal(t, BattMinVolt, set[0].Address)
	assert.Equal(t, DischargeMaxAh, set[7].Address)
}

func TestSetsResolveThroughCatalog(t *testing.T) {
	for _, d := range append(CurrentSet(), DailySet()...) {
		got, ok := Lookup(d.Address)
		require.True(t, ok)
		assert.Equal(t, d, got)
		assert.Equal(t, AccessModeReadOnly, d.AccessMode)
	}
}

func TestLoadControlIsWritable(t *testing.T) {
	d, ok := Lookup(LoadControl)
	require.True(t, ok)
	assert.Equal(t, "LOAD_CONTROL", d.Name)
	assert.Equal(t, AccessModeReadWrite, d.AccessMode)
}

func TestRegistersOrderedByAddress(t *testing.T) {
	rds := Registers()
	for i := 1; i < len(rds); i++ {
		assert.Less(t, rds[i-1].Address, rds[i].Address)
	}
}
