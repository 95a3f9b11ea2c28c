package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// StringSlice stores a []string as a single comma separated column, which
// keeps the schema identical on sqlite and postgres.
type StringSlice []string

// Value implements the driver.Valuer interface.
// No element may include a comma since it's the separator.
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "", nil
	}

	for _, v := range s {
		if strings.Contains(v, ",") {
			return "", fmt.Errorf("unsafe string, %s", v)
		}
	}

	return strings.Join(s, ","), nil
}

// Scan implements the sql.Scanner interface.
func (s *StringSlice) Scan(value any) error {
	var str string

	switch t := value.(type) {
	case nil:
		*s = StringSlice{}
		return nil
	case string:
		str = t
	case []byte:
		str = string(t)
	default:
		return fmt.Errorf("failed to scan StringSlice, %v", value)
	}

	if str == "" {
		*s = StringSlice{}
		return nil
	}

	*s = strings.Split(str, ",")
	return nil
}
