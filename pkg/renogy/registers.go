package renogy

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Holding registers exposed by the charge controller. Values are raw; the
// scale next to each register describes how a consumer turns them into units.
const (
	RtuAddress     uint16 = 0x001A // 1-247, lower 8 bits
	BattCapacity   uint16 = 0x0100 // %
	BattCapacityAh uint16 = 0xE002 // Ah
	BattVoltage    uint16 = 0x0101 // x0.1 V
	ChargeCurrent  uint16 = 0x0102 // x0.01 A
	Temperature    uint16 = 0x0103 // high byte controller, low byte battery, bit 7 of each is sign, °C
	LoadVoltage    uint16 = 0x0104 // x0.1 V
	LoadCurrent    uint16 = 0x0105 // x0.01 A
	LoadPower      uint16 = 0x0106 // W
	PanelVoltage   uint16 = 0x0107 // x0.1 V
	PanelCurrent   uint16 = 0x0108 // x0.01 A
	ChargePower    uint16 = 0x0109 // W

	BattMinVolt    uint16 = 0x010B // daily min, x0.1 V
	BattMaxVolt    uint16 = 0x010C // daily max, x0.1 V
	ChargeMaxA     uint16 = 0x010D // daily max, x0.01 A
	DischargeMaxA  uint16 = 0x010E // daily max, x0.01 A
	ChargeMaxW     uint16 = 0x010F // daily max, W
	DischargeMaxW  uint16 = 0x0110 // daily max, W
	ChargeMaxAh    uint16 = 0x0111 // daily, Ah
	DischargeMaxAh uint16 = 0x0112 // daily, Ah

	LoadStatus uint16 = 0x0120 // bit 7 or bit 15, 0 off 1 on
)

// LoadControl is the only writable register: 1 turns the load output on, 0 off.
const LoadControl uint16 = 0x010A

const UnknownRegister = "UNKNOWN"

type AccessMode int8

const (
	AccessModeReadOnly AccessMode = iota
	AccessModeReadWrite
)

var AccessModeToString = map[AccessMode]string{
	AccessModeReadOnly:  "r",
	AccessModeReadWrite: "rw",
}

var StringToAccessMode = map[string]AccessMode{
	"r":  AccessModeReadOnly,
	"rw": AccessModeReadWrite,
}

func (a AccessMode) MarshalJSON() ([]byte, error) {
	if s, ok := AccessModeToString[a]; ok {
		return json.Marshal(s)
	}
	return nil, fmt.Errorf("unknown accessMode %d", a)
}

func (a *AccessMode) UnmarshalJSON(bytes []byte) error {
	var s string
	if err := json.Unmarshal(bytes, &s); err != nil {
		return err
	}
	v, ok := StringToAccessMode[s]
	if !ok {
		return fmt.Errorf("unknown accessMode %s", s)
	}
	*a = v
	return nil
}

type RegisterDescriptor struct {
	Address    uint16     `json:"address"`
	Name       string     `json:"name"`
	Scale      string     `json:"scale,omitempty"`
	AccessMode AccessMode `json:"accessMode"`
}

var catalog = map[uint16]RegisterDescriptor{
	RtuAddress:     {Address: RtuAddress, Name: "RTU_ADDRESS", Scale: "1"},
	BattCapacity:   {Address: BattCapacity, Name: "BATT_CAPACITY", Scale: "1 %"},
	BattCapacityAh: {Address: BattCapacityAh, Name: "BATT_CAPACITY_AH", Scale: "1 Ah"},
	BattVoltage:    {Address: BattVoltage, Name: "BATT_VOLTAGE", Scale: "0.1 V"},
	ChargeCurrent:  {Address: ChargeCurrent, Name: "CHARGE_CURRENT", Scale: "0.01 A"},
	Temperature:    {Address: Temperature, Name: "TEMPERATURE", Scale: "packed °C"},
	LoadVoltage:    {Address: LoadVoltage, Name: "LOAD_VOLTAGE", Scale: "0.1 V"},
	LoadCurrent:    {Address: LoadCurrent, Name: "LOAD_CURRENT", Scale: "0.01 A"},
	LoadPower:      {Address: LoadPower, Name: "LOAD_POWER", Scale: "1 W"},
	PanelVoltage:   {Address: PanelVoltage, Name: "PANEL_VOLTAGE", Scale: "0.1 V"},
	PanelCurrent:   {Address: PanelCurrent, Name: "PANEL_CURRENT", Scale: "0.01 A"},
	ChargePower:    {Address: ChargePower, Name: "CHARGE_POWER", Scale: "1 W"},
	BattMinVolt:    {Address: BattMinVolt, Name: "BATT_MIN_VOLT", Scale: "0.1 V"},
	BattMaxVolt:    {Address: BattMaxVolt, Name: "BATT_MAX_VOLT", Scale: "0.1 V"},
	ChargeMaxA:     {Address: ChargeMaxA, Name: "CHARGE_MAX_A", Scale: "0.01 A"},
	DischargeMaxA:  {Address: DischargeMaxA, Name: "DISCHARGE_MAX_A", Scale: "0.01 A"},
	ChargeMaxW:     {Address: ChargeMaxW, Name: "CHARGE_MAX_W", Scale: "1 W"},
	DischargeMaxW:  {Address: DischargeMaxW, Name: "DISCHARGE_MAX_W", Scale: "1 W"},
	ChargeMaxAh:    {Address: ChargeMaxAh, Name: "CHARGE_MAX_AH", Scale: "1 Ah"},
	DischargeMaxAh: {Address: DischargeMaxAh, Name: "DISCHARGE_MAX_AH", Scale: "1 Ah"},
	LoadStatus:     {Address: LoadStatus, Name: "LOAD_STATUS", Scale: "bit 7/15"},
	LoadControl:    {Address: LoadControl, Name: "LOAD_CONTROL", Scale: "0/1", AccessMode: AccessModeReadWrite},
}

var currentRegisters = []uint16{
	BattCapacity,
	BattCapacityAh,
	BattVoltage,
	ChargeCurrent,
	Temperature,
	LoadVoltage,
	LoadCurrent,
	LoadPower,
	PanelVoltage,
	PanelCurrent,
	ChargePower,
}

var dailyRegisters = []uint16{
	BattMinVolt,
	BattMaxVolt,
	ChargeMaxA,
	DischargeMaxA,
	ChargeMaxW,
	DischargeMaxW,
	ChargeMaxAh,
	DischargeMaxAh,
}

// NameOf returns the register name, or UnknownRegister and false for an
// address outside the catalog.
func NameOf(address uint16) (string, bool) {
	d, ok := catalog[address]
	if !ok {
		return UnknownRegister, false
	}
	return d.Name, true
}

func Lookup(address uint16) (RegisterDescriptor, bool) {
	d, ok := catalog[address]
	return d, ok
}

// Registers returns every catalogued register ordered by address.
func Registers() []RegisterDescriptor {
	rds := make([]RegisterDescriptor, 0, len(catalog))
	for _, d := range catalog {
		rds = append(rds, d)
	}
	sort.Sort(byAddress(rds))
	return rds
}

func CurrentSet() []RegisterDescriptor {
	return resolve(currentRegisters)
}

func DailySet() []RegisterDescriptor {
	return resolve(dailyRegisters)
}

func resolve(addresses []uint16) []RegisterDescriptor {
	rds := make([]RegisterDescriptor, 0, len(addresses))
	for _, address := range addresses {
		rds = append(rds, catalog[address])
	}
	return rds
}

type byAddress []RegisterDescriptor

func (b byAddress) Len() int           { return len(b) }
func (b byAddress) Less(i, j int) bool { return b[i].Address < b[j].Address }
func (b byAddress) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }
