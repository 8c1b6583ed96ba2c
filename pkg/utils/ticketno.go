package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateTicketNo builds a human-readable, globally unique ticket
// number: T + timestamp + zero-padded report id + random suffix. The
// timestamp and report id make it sortable and traceable by eye; the
// suffix guards against clock collisions.
func GenerateTicketNo(reportID int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("T%s%06d%s", time.Now().Format("20060102150405"), reportID, suffix)
}
