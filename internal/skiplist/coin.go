package skiplist

import "math/rand"

// Coin decides the outcome of one fair coin flip used to grow a tower's
// height during insertion. It is exposed as an interface, rather than baked
// into the insertion algorithm, so tests can substitute a deterministic
// sequence and exercise specific tower shapes (see skiplist_test.go).
type Coin interface {
	Flip() bool
}

// fairCoin is the default Coin: a non-cryptographic, unseeded-by-caller
// source. Nothing about this structure's correctness depends on the coin's
// unpredictability, only its fairness.
type fairCoin struct {
	rnd *rand.Rand
}

func newFairCoin() *fairCoin {
	return &fairCoin{rnd: rand.New(rand.NewSource(1))}
}

func (c *fairCoin) Flip() bool {
	return c.rnd.Intn(2) == 1
}

// scriptedCoin replays a fixed sequence of flips, cycling once exhausted.
// Tests use it to force specific tower heights without depending on a PRNG's
// internal sequence.
type scriptedCoin struct {
	script []bool
	pos    int
}

// NewScriptedCoin returns a Coin that returns heads/tails from script in
// order, wrapping around when exhausted.
func NewScriptedCoin(script ...bool) Coin {
	if len(script) == 0 {
		script = []bool{false}
	}
	return &scriptedCoin{script: script}
}

func (c *scriptedCoin) Flip() bool {
	v := c.script[c.pos%len(c.script)]
	c.pos++
	return v
}
