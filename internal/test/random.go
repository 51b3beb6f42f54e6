package test

import (
	"math/rand"
	"strconv"
	"sync"
	"time"
)

const loginAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// RandomLogin returns a lowercase login of length n.
func RandomLogin(n int) string {
	if n <= 0 {
		n = 8
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = loginAlphabet[randomIntn(len(loginAlphabet))]
	}
	return string(buf)
}

// RandomOrderNumber returns a digit string of the given length that passes the Luhn check.
func RandomOrderNumber(length int) string {
	if length < 2 {
		length = 2
	}
	digits := make([]int, length-1)
	for i := range digits {
		digits[i] = randomIntn(10)
	}

	sum := 0
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if (len(digits)-1-i)%2 == 0 {
			if d *= 2; d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	check := (10 - sum%10) % 10

	out := make([]byte, 0, length)
	for _, d := range digits {
		out = strconv.AppendInt(out, int64(d), 10)
	}
	return string(strconv.AppendInt(out, int64(check), 10))
}

func randomIntn(n int) int {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Intn(n)
}
