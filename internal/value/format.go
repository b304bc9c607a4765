package value

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatScalar is the generic human-readable form of a scalar.
func FormatScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case time.Time:
		return x.Format(time.RFC3339)
	case time.Duration:
		return x.String()
	case []byte:
		return fmt.Sprintf("<binary %s>", humanize.Bytes(uint64(len(x))))
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
