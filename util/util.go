package util

import (
	"crypto/rand"
	"encoding/hex"
	"log"
)

// Logging is a clumsy switch that affects what Logf does.
//
// If Logging is true, then Logf calls log.Printf.
var Logging = false

// Logf is a silly utility function that calls log.Printf if Logging
// is true.
func Logf(format string, args ...interface{}) {
	if !Logging {
		return
	}
	log.Printf(format, args...)
}

// Gensym generates a random hex string of length n, used for request
// ids when the caller didn't bring one.
func Gensym(n int) string {
	bs := make([]byte, (n+1)/2)
	if _, err := rand.Read(bs); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bs)[:n]
}
