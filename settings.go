package reflection

import "fmt"

// Settings is the encoded flag word from spec.md §6. It is written once,
// at write-recursion depth 1, and the Reader must observe it before the
// first payload byte (invariant 9 of spec.md §8).
type Settings struct {
	// SkipMemberData makes the wire omit member names, relying on both
	// sides agreeing on field order via local reflection.
	SkipMemberData bool
	// IgnoreConverter skips the converter dispatch path even when one
	// is available for the actual type.
	IgnoreConverter bool
	// IgnoreCustom skips the custom-serializable dispatch path even
	// when the actual type implements it.
	IgnoreCustom bool
}

const (
	settingsBitSkipMemberData  = 1 << 0
	settingsBitIgnoreConverter = 1 << 1
	settingsBitIgnoreCustom    = 1 << 2

	// settingsKnownBits is the mask of bits this package understands.
	// Per spec.md §6, an unknown bit is a decode error (this package
	// defines no no-op reserved bits yet).
	settingsKnownBits = settingsBitSkipMemberData | settingsBitIgnoreConverter | settingsBitIgnoreCustom
)

func (s Settings) encode() uint64 {
	var v uint64
	if s.SkipMemberData {
		v |= settingsBitSkipMemberData
	}
	if s.IgnoreConverter {
		v |= settingsBitIgnoreConverter
	}
	if s.IgnoreCustom {
		v |= settingsBitIgnoreCustom
	}
	return v
}

func decodeSettings(v uint64) (Settings, error) {
	if v&^uint64(settingsKnownBits) != 0 {
		return Settings{}, fmt.Errorf("reflection: settings word 0x%x has unknown bits: %w", v, ErrMalformedStream)
	}
	return Settings{
		SkipMemberData:  v&settingsBitSkipMemberData != 0,
		IgnoreConverter: v&settingsBitIgnoreConverter != 0,
		IgnoreCustom:    v&settingsBitIgnoreCustom != 0,
	}, nil
}
