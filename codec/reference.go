package codec

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateReference produces a payment reference that is practically unique
// for the life of a replay registry. A collision would cause a legitimate
// payment to be rejected as a replay, so the random part comes from a v4
// UUID rather than a cheaper source. The value is opaque to every consumer.
func GenerateReference() string {
	ts := strconv.FormatInt(time.Now().Unix(), 16)
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return "pay_" + ts + random
}
