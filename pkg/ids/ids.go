package ids

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/equipcare/stockroom-backend/pkg/db"
)

// Entity prefixes for generated identifiers.
const (
	PrefixTransaction = "TXN"
	PrefixLineItem    = "LNI"
	PrefixAccessLog   = "ACC"
	PrefixLot         = "LOT"
	PrefixEquipment   = "EQP"
)

const (
	timeLayout = "20060102150405"

	// maxAttempts bounds the regenerate-on-collision loop. Collisions need
	// two inserts in the same second with the same 2-byte suffix, so more
	// than a couple of retries means the storage layer is misbehaving.
	maxAttempts = 5
)

// New returns an identifier of the form <PREFIX><yyyymmddhhmmss>-<4 hex>.
// The time prefix keeps IDs roughly sortable; the random suffix separates
// concurrent requests inside the same second.
func New(prefix string) string {
	return newAt(prefix, time.Now().UTC())
}

func newAt(prefix string, now time.Time) string {
	return fmt.Sprintf("%s%s-%s", prefix, now.Format(timeLayout), suffix())
}

func suffix() string {
	buf := make([]byte, 2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in serious trouble;
		// a nanosecond-derived suffix still avoids same-call collisions.
		return fmt.Sprintf("%04x", time.Now().UnixNano()&0xffff)
	}
	return hex.EncodeToString(buf)
}

// CreateWithRetry invokes create with a freshly generated identifier and,
// when the insert fails on a unique-key violation, retries with a new ID
// rather than overwriting the existing row. Each attempt runs in its own
// nested transaction: on Postgres a constraint failure aborts the enclosing
// transaction, so the insert must roll back to a savepoint before the next
// attempt can run. Any other error is returned as is. The last attempt's
// error is returned when the budget is exhausted.
func CreateWithRetry(tx *gorm.DB, prefix string, create func(tx *gorm.DB, id string) error) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		id := New(prefix)
		err := tx.Transaction(func(attemptTx *gorm.DB) error {
			return create(attemptTx, id)
		})
		if err == nil {
			return id, nil
		}
		if !db.IsUniqueViolation(err, "") {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("id generation exhausted %d attempts for prefix %s: %w", maxAttempts, prefix, lastErr)
}
