package protocol

import (
	"math"
	"strconv"
)

// Fixed is a signed 24.8 fixed-point number as carried on the wire.
type Fixed int32

func FixedFromInt(i int32) Fixed {
	return Fixed(i * 256)
}

func FixedFromFloat(f float64) Fixed {
	return Fixed(int32(math.Round(f * 256.0)))
}

// Int truncates toward zero.
func (f Fixed) Int() int32 {
	return int32(f) / 256
}

func (f Fixed) Float() float64 {
	return float64(f) / 256.0
}

func (f Fixed) String() string {
	return strconv.FormatFloat(f.Float(), 'f', -1, 64)
}
