package geom

import (
	"strconv"

	"github.com/pkg/errors"
)

// ErrInvalidDimension is returned for dimension values without a leading
// number, like height=tall.
var ErrInvalidDimension = errors.New("invalid dimension")

// ParseScalar splits values like "12.5m" into magnitude and unit suffix.
// The decimal part is only parsed if decimals is true, otherwise "12.5m"
// is 12 with unit ".5m". Units are returned as written and not converted.
func ParseScalar(value string, decimals bool) (float64, string, error) {
	end := digits(value, 0)
	if end == 0 {
		return 0, "", errors.Wrapf(ErrInvalidDimension, "%q", value)
	}
	if decimals && end < len(value) && value[end] == '.' {
		end = digits(value, end+1)
	}
	magnitude, err := strconv.ParseFloat(value[:end], 64)
	if err != nil {
		return 0, "", errors.Wrapf(ErrInvalidDimension, "%q: %s", value, err)
	}
	return magnitude, value[end:], nil
}

func digits(s string, i int) int {
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}
