package randutil

import (
	"math/rand"
	"strconv"
	"sync"
	"time"
)

var (
	mux sync.Mutex
	rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Hex16 returns a random value in [0, 0xffff) formatted as lower-case hex
// without padding.
func Hex16() string {
	mux.Lock()
	defer mux.Unlock()
	return strconv.FormatUint(uint64(rnd.Intn(0xffff)), 16)
}
