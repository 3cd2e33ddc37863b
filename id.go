package unillm

import (
	"fmt"
	"hash/fnv"
	"time"
)

// synthesizeID builds a stable UnifiedResponse.ID for bodies that carry no
// id of their own. seed is whatever distinguishing content the caller has
// on hand (the call sites pass the model id, a model version, or ""); two
// bodies with the same provider and seed in the same nanosecond get the
// same id.
func synthesizeID(provider, seed string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return fmt.Sprintf("%s-%d-%x", provider, time.Now().UnixNano(), h.Sum64())
}
