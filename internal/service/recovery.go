package service

import (
	"fmt"
	"log"
	"math"
	"runtime/debug"
)

// RecoverAndLog recovers from panic and logs it with context
func RecoverAndLog(context string) {
	if r := recover(); r != nil {
		log.Printf("❌ [PANIC RECOVERED] %s: %v\n%s", context, r, string(debug.Stack()))
	}
}

// SafeGo launches a goroutine with panic recovery
func SafeGo(name string, fn func()) {
	go func() {
		defer RecoverAndLog(fmt.Sprintf("Goroutine: %s", name))
		fn()
	}()
}

// ValidateFloat64 checks if a float64 is valid (not NaN or Inf)
func ValidateFloat64(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

// ValidatePrice checks if a price value is usable for level math
func ValidatePrice(price float64) bool {
	return ValidateFloat64(price) && price > 0 && price < 1e10
}

// SafeTypeAssertFloat checks type assertion to float64 safely
func SafeTypeAssertFloat(value interface{}, defaultValue float64) float64 {
	if f, ok := value.(float64); ok {
		if ValidateFloat64(f) {
			return f
		}
	}
	return defaultValue
}

// SafeTypeAssertString checks type assertion to string safely
func SafeTypeAssertString(value interface{}, defaultValue string) string {
	if s, ok := value.(string); ok {
		return s
	}
	return defaultValue
}
