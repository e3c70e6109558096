package envutil

import (
	"os"
	"strings"
)

// IsDev checks if we're running in development mode
// where logging defaults can be more verbose
func IsDev() bool {
	env := strings.ToLower(os.Getenv("AUTH_FRONT_ENV"))
	return env == "development" || env == "dev"
}
