package localauth

import (
	"time"

	"github.com/google/uuid"
)

func nowUTC() time.Time { return time.Now().UTC() }

func newID() string { return uuid.NewString() }
