// internal/domain/models/prayer.go
package models

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Prayer names one of the five daily prayer slots.
type Prayer uint8

const (
	Fajr Prayer = iota
	Dhuhr
	Asr
	Maghrib
	Isha
)

// NumPrayers is the number of daily prayer slots.
const NumPrayers = 5

var prayerNames = [NumPrayers]string{"fajr", "dhuhr", "asr", "maghrib", "isha"}

// Prayers returns the slots in the order they are prayed.
func Prayers() []Prayer {
	return []Prayer{Fajr, Dhuhr, Asr, Maghrib, Isha}
}

// ParsePrayer converts a slot name (case-insensitive) to a Prayer.
func ParsePrayer(s string) (Prayer, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range prayerNames {
		if name == s {
			return Prayer(i), nil
		}
	}
	return 0, fmt.Errorf("unknown prayer %q", s)
}

// Valid reports whether p is one of the five slots.
func (p Prayer) Valid() bool { return p < NumPrayers }

func (p Prayer) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Prayer(%d)", uint8(p))
	}
	return prayerNames[p]
}

// MarshalText implements encoding.TextMarshaler.
func (p Prayer) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid prayer %d", uint8(p))
	}
	return []byte(prayerNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Prayer) UnmarshalText(b []byte) error {
	v, err := ParsePrayer(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalBSONValue stores the slot by name.
func (p Prayer) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !p.Valid() {
		return 0, nil, fmt.Errorf("invalid prayer %d", uint8(p))
	}
	return bson.MarshalValue(prayerNames[p])
}

// UnmarshalBSONValue reads a slot stored by name.
func (p *Prayer) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	name, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("prayer: expected string, got %s", t)
	}
	return p.UnmarshalText([]byte(name))
}
