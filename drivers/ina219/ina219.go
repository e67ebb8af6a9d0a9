// Package ina219 provides a minimal TinyGo driver for the INA219
// bidirectional current/power monitor, used here for H-bridge motor current
// telemetry.
//
// Design notes (datasheet references):
// • I2C, read/write word protocol; data-high then data-low (big-endian).
// • Default 7-bit address = 0x40.
// • Bus voltage LSB = 4 mV (raw value left-shifted by 3).
// • Shunt voltage LSB = 10 µV, signed.
// • Current register scaled by a programmable calibration word:
//   CAL = 0.04096 / (currentLSB[A] × Rshunt[Ω]).

package ina219

import (
	"tinygo.org/x/drivers"

	"picomotor/errcode"
)

const AddressDefault uint16 = 0x40

// Register map.
const (
	regConfig      byte = 0x00
	regShunt       byte = 0x01
	regBus         byte = 0x02
	regPower       byte = 0x03
	regCurrent     byte = 0x04
	regCalibration byte = 0x05
)

// configDefault: 32 V bus range, ±320 mV shunt gain, 12-bit conversions,
// continuous shunt+bus mode.
const configDefault uint16 = 0x399F

type Config struct {
	Address     uint16
	RShunt_uOhm uint32 // shunt resistor (µΩ)
	MaxCurrent  int32  // expected full-scale current (mA)
}

type Device struct {
	i2c  drivers.I2C
	addr uint16

	rshunt_uOhm   uint32
	currentLSB_uA uint32

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [2]byte
}

func New(i2c drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressDefault
	}
	return &Device{
		i2c:         i2c,
		addr:        addr,
		rshunt_uOhm: cfg.RShunt_uOhm,
	}
}

// Configure writes the configuration and calibration registers. It fails
// with errcode.InvalidParams if the shunt value or full-scale current is
// missing, since the current register is meaningless uncalibrated.
func (d *Device) Configure(cfg Config) error {
	if cfg.RShunt_uOhm != 0 {
		d.rshunt_uOhm = cfg.RShunt_uOhm
	}
	if d.rshunt_uOhm == 0 || cfg.MaxCurrent <= 0 {
		return errcode.InvalidParams
	}

	// Current LSB such that the full scale fits the signed 15-bit register.
	lsb := uint32(cfg.MaxCurrent) * 1000 / 32768 // µA per bit
	if lsb == 0 {
		lsb = 1
	}
	d.currentLSB_uA = lsb

	// CAL = 0.04096 / (LSB[A] × R[Ω]) with µA and µΩ intermediates.
	cal := uint64(40_960_000_000) / (uint64(lsb) * uint64(d.rshunt_uOhm))
	if cal == 0 || cal > 0xFFFF {
		return errcode.InvalidParams
	}

	if err := d.writeWord(regConfig, configDefault); err != nil {
		return err
	}
	return d.writeWord(regCalibration, uint16(cal))
}

// BusMilliVolts returns the bus (motor supply) voltage in mV.
func (d *Device) BusMilliVolts() (int32, error) {
	raw, err := d.readWord(regBus)
	if err != nil {
		return 0, err
	}
	return int32(raw>>3) * 4, nil
}

// ShuntMicroVolts returns the signed shunt drop in µV.
func (d *Device) ShuntMicroVolts() (int32, error) {
	raw, err := d.readWord(regShunt)
	if err != nil {
		return 0, err
	}
	return int32(int16(raw)) * 10, nil
}

// CurrentMilliAmps returns the signed motor current in mA. Configure must
// have programmed the calibration first.
func (d *Device) CurrentMilliAmps() (int32, error) {
	if d.currentLSB_uA == 0 {
		return 0, errcode.NotReady
	}
	raw, err := d.readWord(regCurrent)
	if err != nil {
		return 0, err
	}
	uA := int64(int16(raw)) * int64(d.currentLSB_uA)
	return int32(uA / 1000), nil
}

func (d *Device) readWord(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	// Big-endian: HIGH then LOW.
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

func (d *Device) writeWord(reg byte, val uint16) error {
	d.w[0] = reg
	d.w[1] = byte(val >> 8) // high
	d.w[2] = byte(val)      // low
	return d.i2c.Tx(d.addr, d.w[:3], nil)
}
