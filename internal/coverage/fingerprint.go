package coverage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/territory-engine/internal/model"
)

// coordPrecision is the number of decimal places origin coordinates
// are quantized to before fingerprinting. Four decimals is roughly
// 11 meters at the equator, so near-duplicate requests from map
// clicks hash to the same key.
const coordPrecision = 4

// Fingerprint derives the cache key for a coverage request. Origins
// are taken in the order given; rep ids do not participate, only the
// coordinates and the duration do.
func Fingerprint(durationMinutes int, origins []model.Origin) string {
	var b strings.Builder
	fmt.Fprintf(&b, "d=%d", durationMinutes)
	for _, o := range origins {
		fmt.Fprintf(&b, ";%.*f,%.*f", coordPrecision, quantize(o.Lat), coordPrecision, quantize(o.Lng))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// quantize rounds to coordPrecision decimals, collapsing negative zero
// so coordinates straddling zero render identically.
func quantize(v float64) float64 {
	scale := math.Pow10(coordPrecision)
	q := math.Round(v*scale) / scale
	if q == 0 {
		return 0
	}
	return q
}
