package imaging

import "fmt"

// Bounds and default for lossy encode quality.
const (
	MinCompression          = 1
	MaxCompression          = 100
	DefaultCompressionValue = 95
)

// Compression is a validated lossy-encode quality between MinCompression and
// MaxCompression. Higher values mean higher fidelity and larger output.
//
// The zero value is usable and reports DefaultCompressionValue.
type Compression struct {
	value int
}

// NewCompression validates v. Values outside [1, 100] yield ErrValidation.
func NewCompression(v int) (Compression, error) {
	if v < MinCompression || v > MaxCompression {
		return Compression{}, newError(ErrValidation, "compression", "",
			fmt.Errorf("value is %d, must be between %d and %d", v, MinCompression, MaxCompression))
	}
	return Compression{value: v}, nil
}

// DefaultCompression returns quality 95.
func DefaultCompression() Compression {
	return Compression{value: DefaultCompressionValue}
}

// Value returns the quality level.
func (c Compression) Value() int {
	if c.value == 0 {
		return DefaultCompressionValue
	}
	return c.value
}

func (c Compression) String() string {
	return fmt.Sprintf("%d", c.Value())
}
